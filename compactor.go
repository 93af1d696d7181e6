package reqsketch

import (
	"cmp"
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// Compactor is one level of the sketch hierarchy: a bounded buffer of items
// plus a schedule-driven compaction rule. When the buffer fills, the largest
// items are moved to the tail, every other one of them (parity chosen by a
// coin flip) is promoted to the next level, and the rest are discarded.
//
// A Compactor is normally owned by a Sketch, which wires the coin and routes
// promoted items upward.
type Compactor[T cmp.Ordered] struct {
	k uint64 // section size
	n uint64 // rough estimate of the stream size
	h int    // position in the hierarchy

	maxBufferSize int
	compactions   uint64 // compaction counter C, drives the schedule
	buffer        []T
	coin          func() bool
}

// NewCompactor returns a compactor for level h. k is the section size and
// must be a positive even integer; n is the rough stream size estimate and
// must exceed k. coin supplies the parity choice for each compaction; tests
// can pass a deterministic sequence.
func NewCompactor[T cmp.Ordered](k, n uint64, h int, coin func() bool) (*Compactor[T], error) {
	if k == 0 || k%2 != 0 {
		return nil, fmt.Errorf("section size k must be a positive even integer, got %d", k)
	}
	if n <= k {
		return nil, fmt.Errorf("stream size estimate n (%d) must exceed section size k (%d)", n, k)
	}
	if coin == nil {
		return nil, fmt.Errorf("coin must not be nil")
	}

	m := int(math.Ceil(math.Log2(float64(n) / float64(k))))
	return &Compactor[T]{
		k:             k,
		n:             n,
		h:             h,
		maxBufferSize: 2 * int(k) * m,
		coin:          coin,
	}, nil
}

// Insert appends item to the buffer, compacting first if the buffer is
// exactly full. The returned slice holds the items promoted to the next
// level by that compaction; it is empty on the vast majority of calls.
func (c *Compactor[T]) Insert(item T) []T {
	var promoted []T
	if len(c.buffer) == c.maxBufferSize {
		promoted = c.compact()
	}
	c.buffer = append(c.buffer, item)
	return promoted
}

// compact discards roughly half of the scheduled sections and returns the
// surviving half for promotion.
func (c *Compactor[T]) compact() []T {
	// The schedule: section s is compacted every 2^s-th compaction, which is
	// exactly the trailing-ones count of the counter, plus the base section.
	// The count is clamped to the number of sections the buffer holds; past
	// that point the whole buffer is compacted.
	sections := trailingOnes(c.compactions) + 1
	if max := c.maxBufferSize / int(c.k); sections > max {
		sections = max
	}
	elements := sections * int(c.k)
	pivot := c.maxBufferSize - elements
	if pivot < 0 {
		panic(fmt.Sprintf("reqsketch: compaction schedule exceeded buffer: %d sections of %d in %d", sections, c.k, c.maxBufferSize))
	}

	// Move the `elements` largest items to the tail, in ascending order.
	sort.Slice(c.buffer, func(i, j int) bool { return c.buffer[i] < c.buffer[j] })

	// Promote every other selected item, starting at the pivot or one past
	// it depending on the coin. elements is even, so either parity yields
	// exactly elements/2 promotions.
	promoted := make([]T, 0, elements/2)
	i := pivot
	if !c.coin() && i%2 == 0 {
		i++
	}
	for ; i < c.maxBufferSize; i += 2 {
		promoted = append(promoted, c.buffer[i])
	}

	// Drop every compacted item and release the slack. The backing array
	// must shrink to exactly the surviving size or the per-level space
	// bound no longer holds.
	kept := make([]T, pivot)
	copy(kept, c.buffer[:pivot])
	c.buffer = kept
	if len(c.buffer) != pivot || cap(c.buffer) != pivot {
		panic(fmt.Sprintf("reqsketch: buffer not trimmed after compaction: len=%d cap=%d want %d", len(c.buffer), cap(c.buffer), pivot))
	}

	c.compactions++
	return promoted
}

// Size returns the number of items currently buffered at this level.
func (c *Compactor[T]) Size() int {
	return len(c.buffer)
}

// MaxSize returns the fixed buffer capacity 2·k·ceil(log2(n/k)).
func (c *Compactor[T]) MaxSize() int {
	return c.maxBufferSize
}

// Level returns the compactor's position in the hierarchy.
func (c *Compactor[T]) Level() int {
	return c.h
}

// Compactions returns how many times this compactor has compacted.
func (c *Compactor[T]) Compactions() uint64 {
	return c.compactions
}

func trailingOnes(c uint64) int {
	return bits.TrailingZeros64(^c)
}
