// Command demo benchmarks the relative-error quantile sketch: it streams
// synthetic keys through a sketch, reports the root-mean-square error of the
// requested quantile boundaries, and compares a float run against two
// established estimators (GK targeted quantiles and a merging t-digest).
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/beorn7/perks/quantile"
	"github.com/stripe/veneur/tdigest"

	"github.com/axiomhq/reqsketch"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML benchmark config")
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if err := runKeyBenchmark(cfg, rng); err != nil {
		log.Fatal(err)
	}
	if cfg.ComparisonN > 0 {
		if err := runFloatComparison(cfg, rng); err != nil {
			log.Fatal(err)
		}
	}
}

// generateKey produces a random 84-character key of five 64-bit hex chunks.
func generateKey(rng *rand.Rand) string {
	return fmt.Sprintf("%016x:%016x:%016x:%016x:%016x",
		rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64())
}

// runKeyBenchmark inserts cfg.N random keys, closes the sketch, and prints
// the RMSE of the cumulative weight at each emitted quantile boundary
// against the ideal (q/Q)·totalWeight.
func runKeyBenchmark(cfg benchConfig, rng *rand.Rand) error {
	sketch, err := reqsketch.New[string](
		reqsketch.Config{N: cfg.N, K: cfg.K},
		reqsketch.WithRandomSource(rand.NewSource(cfg.Seed)),
	)
	if err != nil {
		return err
	}

	fmt.Printf("inserting %d keys (k=%d)\n", cfg.N, cfg.K)
	start := time.Now()
	for i := uint64(0); i < cfg.N; i++ {
		if err := sketch.Insert(generateKey(rng), 0); err != nil {
			return err
		}
	}
	fmt.Printf("inserted %d keys in %v, depth %d\n", cfg.N, time.Since(start), sketch.Depth())

	if cfg.SnapshotPath != "" {
		if err := writeSnapshot(sketch, cfg.SnapshotPath); err != nil {
			return err
		}
	}

	if err := sketch.Close(); err != nil {
		return err
	}

	quantiles, err := sketch.Quantiles(cfg.NumQuantiles)
	if err != nil {
		return err
	}

	sumSq := 0.0
	for _, q := range quantiles {
		e := q.CumulativeWeight - float64(q.Q)/float64(cfg.NumQuantiles)*sketch.TotalWeight()
		sumSq += e * e
	}
	fmt.Printf("emitted %d of %d quantile boundaries, total weight %g\n",
		len(quantiles), cfg.NumQuantiles, sketch.TotalWeight())
	fmt.Printf("RMSE: %g\n", math.Sqrt(sumSq/float64(cfg.NumQuantiles)))
	return nil
}

func writeSnapshot(sketch *reqsketch.Sketch[string], path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()
	if err := sketch.Snapshot(f); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	fmt.Printf("snapshot written to %s (%d bytes)\n", path, info.Size())
	return nil
}

// runFloatComparison streams uniform floats through the sketch, a GK
// targeted-quantile stream, and a merging t-digest, then prints the p50,
// p90 and p99 each one reports next to the exact values.
func runFloatComparison(cfg benchConfig, rng *rand.Rand) error {
	sketch, err := reqsketch.New[float64](
		reqsketch.Config{N: uint64(cfg.ComparisonN), K: cfg.K},
		reqsketch.WithRandomSource(rand.NewSource(cfg.Seed)),
	)
	if err != nil {
		return err
	}
	gk := quantile.NewTargeted(map[float64]float64{
		0.50: 0.005,
		0.90: 0.001,
		0.99: 0.0001,
	})
	td := tdigest.NewMerging(1000, false)

	values := make([]float64, cfg.ComparisonN)
	for i := range values {
		v := rng.Float64()
		values[i] = v
		if err := sketch.Insert(v, 0); err != nil {
			return err
		}
		gk.Insert(v)
		td.Add(v, 1)
	}
	if err := sketch.Close(); err != nil {
		return err
	}
	sort.Float64s(values)

	// Pull the sketch's values for p50/p90/p99 out of a 100-quantile pass.
	boundaries, err := sketch.Quantiles(100)
	if err != nil {
		return err
	}
	atBoundary := func(q int) float64 {
		for _, b := range boundaries {
			if b.Q == q {
				return b.Item
			}
		}
		return math.NaN()
	}

	fmt.Printf("\ncomparison over %d uniform floats:\n", cfg.ComparisonN)
	fmt.Printf("%-10s %-12s %-12s %-12s %-12s\n", "quantile", "exact", "reqsketch", "gk", "tdigest")
	for _, p := range []float64{0.50, 0.90, 0.99} {
		exact := values[int(p*float64(len(values)))]
		fmt.Printf("%-10.2f %-12.6f %-12.6f %-12.6f %-12.6f\n",
			p, exact, atBoundary(int(math.Round(p*100))), gk.Query(p), td.Quantile(p))
	}
	return nil
}
