package reqsketch

import (
	"fmt"
	"io"
)

// Dump writes a human-readable snapshot of the sketch's internal state to w:
// the configuration, the hierarchy depth, and every compactor's buffer. It
// is a read-only diagnostic and may be called at any point.
func (s *Sketch[T]) Dump(w io.Writer) {
	fmt.Fprintf(w, "sketch n=%d k=%d H=%d closed=%v\n", s.cfg.N, s.cfg.K, s.Depth(), s.closed)
	for _, c := range s.compactors {
		c.Dump(w)
	}
	if s.closed {
		fmt.Fprintf(w, "totalWeight=%g weightedElements=%d\n", s.totalWeight, len(s.weighted))
	}
}

// Dump writes the compactor's configuration, counters and buffer contents
// to w.
func (c *Compactor[T]) Dump(w io.Writer) {
	fmt.Fprintf(w, "%d: compactor n=%d k=%d maxBufferSize=%d compactions=%d\n",
		c.h, c.n, c.k, c.maxBufferSize, c.compactions)
	fmt.Fprintf(w, "  buffer (%d items):\n", len(c.buffer))
	for _, item := range c.buffer {
		fmt.Fprintf(w, "    %v\n", item)
	}
}
