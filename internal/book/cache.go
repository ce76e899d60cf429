package book

import "sync"

// bestPriceCache is a lazy memo for best bid/ask, invalidated on every
// structural mutation. Readers recompute on miss; writers only flip the
// invalidation flag, per SPEC_FULL.md §5.
type bestPriceCache struct {
	mu sync.Mutex

	valid bool

	hasBid  bool
	bestBid uint64
	hasAsk  bool
	bestAsk uint64
}

func (c *bestPriceCache) invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}

// get returns the cached values if valid, or reports a miss so the caller
// can recompute and store via set.
func (c *bestPriceCache) get() (hasBid bool, bestBid uint64, hasAsk bool, bestAsk uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return false, 0, false, 0, false
	}
	return c.hasBid, c.bestBid, c.hasAsk, c.bestAsk, true
}

func (c *bestPriceCache) set(hasBid bool, bestBid uint64, hasAsk bool, bestAsk uint64) {
	c.mu.Lock()
	c.hasBid, c.bestBid, c.hasAsk, c.bestAsk = hasBid, bestBid, hasAsk, bestAsk
	c.valid = true
	c.mu.Unlock()
}
