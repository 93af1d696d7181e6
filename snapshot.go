package reqsketch

import (
	"cmp"
	"encoding/gob"
	"fmt"
	"io"
)

// Field names are exported for gob; the types themselves stay internal.

type compactorState[T cmp.Ordered] struct {
	K           uint64
	N           uint64
	Level       int
	Compactions uint64
	Buffer      []T
}

type sketchState[T cmp.Ordered] struct {
	N          uint64
	K          uint64
	Depth      int
	Compactors []compactorState[T]
}

// Snapshot serializes the sketch's full pre-Close state to w in gob format:
// the configuration, the hierarchy depth, and every compactor's counters
// and buffer. A closed sketch cannot be snapshotted: its buffers have
// already been folded into the weighted view.
func (s *Sketch[T]) Snapshot(w io.Writer) error {
	if s.closed {
		return ErrClosed
	}

	state := sketchState[T]{
		N:     s.cfg.N,
		K:     s.cfg.K,
		Depth: s.Depth(),
	}
	for _, c := range s.compactors {
		state.Compactors = append(state.Compactors, compactorState[T]{
			K:           c.k,
			N:           c.n,
			Level:       c.h,
			Compactions: c.compactions,
			Buffer:      c.buffer,
		})
	}
	if err := gob.NewEncoder(w).Encode(state); err != nil {
		return fmt.Errorf("encoding sketch snapshot: %w", err)
	}
	return nil
}

// Restore reads a snapshot written by Snapshot and reconstructs the sketch.
// The restored sketch is not closed; it accepts further inserts and must be
// closed before querying, like any other sketch.
func Restore[T cmp.Ordered](r io.Reader, opts ...Option) (*Sketch[T], error) {
	var state sketchState[T]
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding sketch snapshot: %w", err)
	}
	if len(state.Compactors) != state.Depth+1 {
		return nil, fmt.Errorf("corrupt snapshot: %d compactors for depth %d", len(state.Compactors), state.Depth)
	}

	s := &Sketch[T]{
		cfg:  Config{N: state.N, K: state.K},
		coin: newSettings(opts).coin(),
	}
	for i, cs := range state.Compactors {
		if cs.Level != i {
			return nil, fmt.Errorf("corrupt snapshot: compactor %d reports level %d", i, cs.Level)
		}
		c, err := NewCompactor[T](cs.K, cs.N, cs.Level, s.coin)
		if err != nil {
			return nil, fmt.Errorf("corrupt snapshot: %w", err)
		}
		if len(cs.Buffer) > c.maxBufferSize {
			return nil, fmt.Errorf("corrupt snapshot: level %d buffer holds %d items, max %d", i, len(cs.Buffer), c.maxBufferSize)
		}
		c.compactions = cs.Compactions
		c.buffer = append(c.buffer, cs.Buffer...)
		s.compactors = append(s.compactors, c)
	}
	return s, nil
}
