package reqsketch

import (
	"math/rand"
	"time"
)

type settings struct {
	src rand.Source
}

// Option configures a sketch at construction time.
type Option func(*settings)

// WithRandomSource sets the random source behind the compaction coin flips.
// Passing a fixed-seed source makes a run reproducible; the default source
// is seeded from the wall clock.
func WithRandomSource(src rand.Source) Option {
	return func(s *settings) {
		s.src = src
	}
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.src == nil {
		s.src = rand.NewSource(time.Now().UnixNano())
	}
	return s
}

func (s *settings) coin() func() bool {
	rng := rand.New(s.src)
	return func() bool {
		return rng.Intn(2) == 0
	}
}
