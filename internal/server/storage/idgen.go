package storage

import (
	"math"
	"sync/atomic"

	"github.com/dmitrijs2005/registadb/internal/common"
)

// IDGenerator hands out entry identifiers. It is seeded from the index
// namespace when the engine opens, so the namespace stays the only
// persisted source of truth.
type IDGenerator struct {
	last atomic.Uint64
}

// NewIDGenerator returns a generator whose next allocation is seed+1.
func NewIDGenerator(seed uint64) *IDGenerator {
	g := &IDGenerator{}
	g.last.Store(seed)
	return g
}

// Allocate returns the next identifier. It never returns 0 and never wraps:
// once math.MaxUint64 has been allocated or observed it fails with
// common.ErrIDExhausted.
func (g *IDGenerator) Allocate() (uint64, error) {
	for {
		cur := g.last.Load()
		if cur == math.MaxUint64 {
			return 0, common.ErrIDExhausted
		}
		if g.last.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// Observe records an identifier chosen outside the generator so that later
// allocations never return it.
func (g *IDGenerator) Observe(id uint64) {
	for {
		cur := g.last.Load()
		if id <= cur || g.last.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Last returns the highest identifier allocated or observed so far.
func (g *IDGenerator) Last() uint64 {
	return g.last.Load()
}
