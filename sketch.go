package reqsketch

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrClosed is returned when inserting into or re-closing a sketch
	// after Close.
	ErrClosed = errors.New("sketch already closed")

	// ErrNotClosed is returned by queries issued before Close.
	ErrNotClosed = errors.New("Close() must be called before querying")

	// ErrEmptyItem is returned when an empty string is inserted into a
	// string-typed sketch.
	ErrEmptyItem = errors.New("empty item")
)

// Config holds the sketch parameters. Both are fixed at construction.
type Config struct {
	// N is a rough estimate of the total stream size. It only sizes the
	// per-level buffers; the sketch keeps working past it.
	N uint64
	// K is the section size. Must be a positive even integer, and N must
	// exceed it.
	K uint64
}

// Sketch is a bounded-memory summary of a stream supporting approximate
// rank and quantile queries with a relative-error guarantee: the estimation
// error scales with the true rank rather than with the stream size.
//
// Feed it with Insert(item, 0), call Close once after the stream ends, then
// query with EstimateRank and Quantiles. A Sketch is not safe for concurrent
// use.
type Sketch[T cmp.Ordered] struct {
	cfg        Config
	compactors []*Compactor[T]
	coin       func() bool

	closed      bool
	weighted    []weightedElement[T]
	totalWeight float64
}

type weightedElement[T cmp.Ordered] struct {
	item   T
	weight float64
}

// Quantile is one record returned by Quantiles: the Q-th n-quantile fell at
// Item, with CumulativeWeight weight at or below it.
type Quantile[T cmp.Ordered] struct {
	Q                int
	Item             T
	CumulativeWeight float64
}

// New constructs a sketch from cfg. The level-0 compactor is created
// eagerly; higher levels appear as compactions promote items into them.
func New[T cmp.Ordered](cfg Config, opts ...Option) (*Sketch[T], error) {
	s := &Sketch[T]{
		cfg:  cfg,
		coin: newSettings(opts).coin(),
	}
	base, err := NewCompactor[T](cfg.K, cfg.N, 0, s.coin)
	if err != nil {
		return nil, err
	}
	s.compactors = append(s.compactors, base)
	return s, nil
}

// Insert adds item at the given level, normally 0. Items promoted by a
// resulting compaction cascade upward until every level settles; missing
// levels are constructed on the way.
func (s *Sketch[T]) Insert(item T, level int) error {
	if s.closed {
		return ErrClosed
	}
	if level < 0 {
		return fmt.Errorf("invalid level %d", level)
	}
	if str, ok := any(item).(string); ok && str == "" {
		return ErrEmptyItem
	}

	// Explicit work list instead of recursion: a single insert can ripple
	// through every level, and the stack holds promoted items in reverse so
	// they are processed in promotion order.
	type pending struct {
		item  T
		level int
	}
	stack := []pending{{item, level}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := s.grow(p.level); err != nil {
			return err
		}
		promoted := s.compactors[p.level].Insert(p.item)
		for i := len(promoted) - 1; i >= 0; i-- {
			stack = append(stack, pending{promoted[i], p.level + 1})
		}
	}
	return nil
}

// grow constructs every missing compactor up through level, keeping the
// hierarchy contiguous.
func (s *Sketch[T]) grow(level int) error {
	for len(s.compactors) <= level {
		c, err := NewCompactor[T](s.cfg.K, s.cfg.N, len(s.compactors), s.coin)
		if err != nil {
			return err
		}
		s.compactors = append(s.compactors, c)
	}
	return nil
}

// Close finalizes the sketch: every item still buffered at level h is
// assigned weight 2^h, and the resulting weighted elements are sorted into
// the queryable view. Close must be called exactly once, after all inserts.
func (s *Sketch[T]) Close() error {
	if s.closed {
		return ErrClosed
	}

	for h, c := range s.compactors {
		if c.Level() != h {
			panic(fmt.Sprintf("reqsketch: compactor at index %d reports level %d", h, c.Level()))
		}
		weight := math.Pow(2, float64(h))
		for _, item := range c.buffer {
			s.weighted = append(s.weighted, weightedElement[T]{item: item, weight: weight})
		}
	}
	sort.Slice(s.weighted, func(i, j int) bool { return s.weighted[i].item < s.weighted[j].item })
	for _, we := range s.weighted {
		s.totalWeight += we.weight
	}
	s.closed = true
	return nil
}

// EstimateRank returns the summed weight of all retained elements strictly
// less than item, approximating how many stream elements were below it.
func (s *Sketch[T]) EstimateRank(item T) (float64, error) {
	if !s.closed {
		return 0, ErrNotClosed
	}

	// Lower bound: first element not less than item.
	idx := sort.Search(len(s.weighted), func(i int) bool { return s.weighted[i].item >= item })
	rank := 0.0
	for _, we := range s.weighted[:idx] {
		rank += we.weight
	}
	return rank, nil
}

// Quantiles walks the sorted weighted view once and emits a record each time
// the cumulative weight fraction reaches the next 1/n boundary. Only one
// boundary is advanced per element, so an element heavy enough to cross
// several boundaries at once yields a single record and fewer than n-1
// records come back; pass a larger n for finer coverage.
func (s *Sketch[T]) Quantiles(n int) ([]Quantile[T], error) {
	if !s.closed {
		return nil, ErrNotClosed
	}
	if n < 1 {
		return nil, fmt.Errorf("number of quantiles must be positive, got %d", n)
	}

	var (
		quantiles []Quantile[T]
		current   = 1
		cumWeight = 0.0
	)
	for _, we := range s.weighted {
		cumWeight += we.weight
		if cumWeight/s.totalWeight >= float64(current)/float64(n) {
			quantiles = append(quantiles, Quantile[T]{
				Q:                current,
				Item:             we.item,
				CumulativeWeight: cumWeight,
			})
			current++
		}
	}
	return quantiles, nil
}

// Depth returns the highest level constructed so far.
func (s *Sketch[T]) Depth() int {
	return len(s.compactors) - 1
}

// TotalWeight returns the summed weight of all retained elements, an
// estimate of the total inserted count. It is 0 before Close.
func (s *Sketch[T]) TotalWeight() float64 {
	return s.totalWeight
}
