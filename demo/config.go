package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// benchConfig drives the benchmark run. All fields are optional in the YAML
// file; zero values fall back to the defaults below.
type benchConfig struct {
	// N is the number of synthetic keys to insert, also passed to the
	// sketch as its stream size estimate.
	N uint64 `yaml:"n"`
	// K is the sketch section size, a positive even integer.
	K uint64 `yaml:"k"`
	// NumQuantiles is how many quantile boundaries the RMSE pass requests.
	NumQuantiles int `yaml:"num_quantiles"`
	// Seed seeds both the key generator and the sketch's compaction coins.
	Seed int64 `yaml:"seed"`
	// SnapshotPath, when set, receives a binary snapshot of the sketch
	// taken just before Close.
	SnapshotPath string `yaml:"snapshot_path"`
	// ComparisonN is the stream size for the float comparison pass against
	// the GK and t-digest baselines. Zero disables the pass.
	ComparisonN int `yaml:"comparison_n"`
}

func defaultConfig() benchConfig {
	return benchConfig{
		N:            1_000_000,
		K:            1024,
		NumQuantiles: 1000,
		Seed:         1,
		ComparisonN:  200_000,
	}
}

// loadConfig reads a benchConfig from a YAML file, filling unset fields
// from the defaults.
func loadConfig(path string) (benchConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if cfg.K == 0 || cfg.K%2 != 0 {
		return cfg, fmt.Errorf("k must be a positive even integer, got %d", cfg.K)
	}
	return cfg, nil
}
