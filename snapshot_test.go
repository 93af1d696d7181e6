package reqsketch

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotRoundTrip(t *testing.T) {
	assert := assert.New(t)
	sketch, err := New[int](Config{N: 100, K: 4}, WithRandomSource(rand.NewSource(11)))
	assert.NoError(err)

	for i := 1; i <= 75; i++ {
		assert.NoError(sketch.Insert(i, 0))
	}

	var buf bytes.Buffer
	assert.NoError(sketch.Snapshot(&buf))

	restored, err := Restore[int](&buf)
	assert.NoError(err)
	assert.Equal(sketch.cfg, restored.cfg)
	assert.Equal(sketch.Depth(), restored.Depth())
	for h, c := range sketch.compactors {
		rc := restored.compactors[h]
		assert.Equal(c.k, rc.k)
		assert.Equal(c.n, rc.n)
		assert.Equal(c.maxBufferSize, rc.maxBufferSize)
		assert.Equal(c.compactions, rc.compactions)
		assert.Equal(c.buffer, rc.buffer)
	}
}

func TestSnapshotRestoredSketchKeepsIngesting(t *testing.T) {
	assert := assert.New(t)
	sketch, err := New[int](Config{N: 100, K: 4}, WithRandomSource(rand.NewSource(13)))
	assert.NoError(err)
	for i := 1; i <= 50; i++ {
		assert.NoError(sketch.Insert(i, 0))
	}

	var buf bytes.Buffer
	assert.NoError(sketch.Snapshot(&buf))

	restored, err := Restore[int](&buf, WithRandomSource(rand.NewSource(17)))
	assert.NoError(err)
	for i := 51; i <= 100; i++ {
		assert.NoError(restored.Insert(i, 0))
	}
	assert.NoError(restored.Close())
	assert.Equal(100.0, restored.TotalWeight())

	rank, err := restored.EstimateRank(51)
	assert.NoError(err)
	assert.InDelta(50, rank, 15)
}

func TestSnapshotAfterClose(t *testing.T) {
	assert := assert.New(t)
	sketch, err := New[int](Config{N: 8, K: 2})
	assert.NoError(err)
	assert.NoError(sketch.Close())

	var buf bytes.Buffer
	assert.ErrorIs(sketch.Snapshot(&buf), ErrClosed)
}

func TestRestoreCorruptInput(t *testing.T) {
	if _, err := Restore[int](strings.NewReader("not a gob stream")); err == nil {
		t.Error("expected error, got nil")
	}
}
