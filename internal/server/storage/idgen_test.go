package storage

import (
	"math"
	"sync"
	"testing"

	"github.com/dmitrijs2005/registadb/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocate(t *testing.T, g *IDGenerator) uint64 {
	t.Helper()
	id, err := g.Allocate()
	require.NoError(t, err)
	return id
}

func TestIDGenerator_StartsAfterSeed(t *testing.T) {
	g := NewIDGenerator(41)
	assert.Equal(t, uint64(42), allocate(t, g))
	assert.Equal(t, uint64(43), allocate(t, g))
	assert.Equal(t, uint64(43), g.Last())
}

func TestIDGenerator_SaturatesAtMax(t *testing.T) {
	g := NewIDGenerator(math.MaxUint64 - 1)
	assert.Equal(t, uint64(math.MaxUint64), allocate(t, g))

	for i := 0; i < 3; i++ {
		id, err := g.Allocate()
		require.ErrorIs(t, err, common.ErrIDExhausted)
		assert.Zero(t, id)
	}
	assert.Equal(t, uint64(math.MaxUint64), g.Last())
}

func TestIDGenerator_ObserveMaxExhausts(t *testing.T) {
	g := NewIDGenerator(0)
	assert.Equal(t, uint64(1), allocate(t, g))

	g.Observe(math.MaxUint64)
	_, err := g.Allocate()
	assert.ErrorIs(t, err, common.ErrIDExhausted)
}

func TestIDGenerator_ConcurrentAllocationsAreUnique(t *testing.T) {
	g := NewIDGenerator(0)

	const workers, perWorker = 16, 500
	results := make(chan uint64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := g.Allocate()
				if err != nil {
					return
				}
				results <- id
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]struct{}, workers*perWorker)
	for id := range results {
		require.NotZero(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, uint64(workers*perWorker), g.Last())
}

func TestIDGenerator_Observe(t *testing.T) {
	g := NewIDGenerator(10)

	g.Observe(5)
	assert.Equal(t, uint64(10), g.Last(), "lower ids must not move the counter back")

	g.Observe(100)
	assert.Equal(t, uint64(101), allocate(t, g))
}
