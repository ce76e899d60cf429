package book

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/btree"
)

// priceLevels is an ordered price -> *PriceLevel map. bids use a descending
// comparator (Min() yields the highest bid); asks use an ascending one
// (Min() yields the lowest ask). Scan() therefore walks either side in
// best-price-first order without any extra bookkeeping.
type priceLevels = btree.BTreeG[*PriceLevel]

type orderLocation struct {
	price uint64
	side  Side
}

// OrderBook is the price-time priority book for one instrument.
//
// Invariants (must hold after every operation):
//  1. best bid < best ask whenever both exist.
//  2. orderLocations covers exactly the live orders present in bids ∪ asks.
//  3. a PriceLevel with OrderCount() == 0 is never present in bids or asks.
//  4. every live order id is unique across the book.
//  5. an order whose time-in-force has expired is not eligible to rest.
type OrderBook struct {
	instrumentID string

	mu   sync.RWMutex
	bids *priceLevels
	asks *priceLevels

	locations map[uint64]orderLocation

	lastTradePrice atomic.Uint64
	hasTraded      atomic.Bool

	marketCloseMs  atomic.Int64
	hasMarketClose atomic.Bool

	txnGen TxnIDGenerator
	cache  bestPriceCache

	tradeListener TradeListener
	levelListener PriceLevelChangedListener
}

func NewOrderBook(instrumentID string) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price > b.price
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.price < b.price
	})
	return &OrderBook{
		instrumentID: instrumentID,
		bids:         bids,
		asks:         asks,
		locations:    make(map[uint64]orderLocation),
	}
}

func (b *OrderBook) InstrumentID() string { return b.instrumentID }

// SetListeners registers the shared, thread-safe, read-only trade and
// price-level-change callbacks. Copy-on-register: later calls replace the
// prior listener rather than accumulating a registry.
func (b *OrderBook) SetListeners(trade TradeListener, level PriceLevelChangedListener) {
	b.mu.Lock()
	b.tradeListener = trade
	b.levelListener = level
	b.mu.Unlock()
}

// SetMarketClose installs the optional per-book market-close timestamp
// (milliseconds since epoch) that augments DAY time-in-force semantics.
func (b *OrderBook) SetMarketClose(timestampMs int64) {
	b.marketCloseMs.Store(timestampMs)
	b.hasMarketClose.Store(true)
}

func (b *OrderBook) marketClose() *int64 {
	if !b.hasMarketClose.Load() {
		return nil
	}
	ts := b.marketCloseMs.Load()
	return &ts
}

func (b *OrderBook) LastTradePrice() (uint64, bool) {
	return b.lastTradePrice.Load(), b.hasTraded.Load()
}

func nowMs() int64 { return time.Now().UnixMilli() }

func (b *OrderBook) sideMap(side Side) *priceLevels {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest resting bid price, if any.
func (b *OrderBook) BestBid() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestLocked(Buy)
}

// BestAsk returns the lowest resting ask price, if any.
func (b *OrderBook) BestAsk() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestLocked(Sell)
}

func (b *OrderBook) bestLocked(side Side) (uint64, bool) {
	hasBid, bestBid, hasAsk, bestAsk, ok := b.cache.get()
	if !ok {
		level, found := b.bids.Min()
		hasBid = found
		if found {
			bestBid = level.Price()
		}
		level, found = b.asks.Min()
		hasAsk = found
		if found {
			bestAsk = level.Price()
		}
		b.cache.set(hasBid, bestBid, hasAsk, bestAsk)
	}
	if side == Buy {
		return bestBid, hasBid
	}
	return bestAsk, hasAsk
}

// willCrossMarket reports whether an incoming order at price/side would
// immediately cross the best opposite price.
func (b *OrderBook) willCrossMarket(price uint64, side Side) bool {
	switch side {
	case Buy:
		bestAsk, ok := b.bestLocked(Sell)
		return ok && price >= bestAsk
	default:
		bestBid, ok := b.bestLocked(Buy)
		return ok && price <= bestBid
	}
}

func (b *OrderBook) emitLevelChanged(side Side, price, quantity uint64) {
	if b.levelListener != nil {
		b.levelListener(PriceLevelChangedEvent{Side: side, Price: price, Quantity: quantity})
	}
}

func (b *OrderBook) emitTrade(result MatchResult) {
	if b.tradeListener != nil && len(result.Transactions) > 0 {
		b.tradeListener(TradeResult{Symbol: b.instrumentID, MatchResult: result})
	}
}

// OrderCount returns the number of live orders tracked in order_locations.
func (b *OrderBook) OrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.locations)
}

// Levels returns a best-first snapshot of one side's price levels, used by
// the analytics package. The returned slice is a stable copy; mutating it
// does not affect the book.
func (b *OrderBook) Levels(side Side) []*PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.sideMap(side)
	levels := make([]*PriceLevel, 0, m.Len())
	m.Scan(func(level *PriceLevel) bool {
		levels = append(levels, level)
		return true
	})
	return levels
}
