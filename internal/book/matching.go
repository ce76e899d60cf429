package book

// MatchOrder is the core cross-level matching algorithm. It walks the
// opposite side's price levels in best-price order, delegating to
// PriceLevel.MatchOrder at each level, until the incoming quantity is
// exhausted, the book empties, or (for a limit order) the price limit is
// passed. Empty levels and fully filled makers are removed only after the
// whole traversal completes, so a partial failure mid-sweep is impossible:
// either the full traversal runs to completion or an early check (done by
// the caller, e.g. PostOnly crossing) rejects before any mutation.
func (b *OrderBook) MatchOrder(takerID uint64, side Side, quantity uint64, limitPrice *uint64) (MatchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.invalidate()

	result := MatchResult{OrderID: takerID}
	remaining := quantity

	opposite := b.sideMap(side.Opposite())
	if opposite.Len() == 0 {
		if limitPrice == nil {
			return result, errInsufficientLiquidity(side, quantity, 0)
		}
		result.RemainingQuantity = remaining
		return result, nil
	}

	now := nowMs()
	marketClose := b.marketClose()

	var removedOrders []uint64
	var emptyLevels []*PriceLevel

	opposite.Scan(func(level *PriceLevel) bool {
		if limitPrice != nil {
			switch side {
			case Buy:
				if level.Price() > *limitPrice {
					return false
				}
			case Sell:
				if level.Price() < *limitPrice {
					return false
				}
			}
		}

		levelMatch := level.MatchOrder(remaining, takerID, now, marketClose, &b.txnGen)
		if len(levelMatch.Transactions) > 0 {
			b.lastTradePrice.Store(level.Price())
			b.hasTraded.Store(true)
			result.Transactions = append(result.Transactions, levelMatch.Transactions...)
			b.emitLevelChanged(side.Opposite(), level.Price(), level.VisibleQuantity())
		}
		for _, id := range levelMatch.FilledOrderIDs {
			result.FilledOrderIDs = append(result.FilledOrderIDs, id)
			removedOrders = append(removedOrders, id)
		}
		// Expired makers are removed from the book like filled ones, but
		// never filled, so they stay out of the public FilledOrderIDs.
		removedOrders = append(removedOrders, levelMatch.ExpiredOrderIDs...)
		remaining = levelMatch.RemainingQuantity

		if level.OrderCount() == 0 {
			emptyLevels = append(emptyLevels, level)
		}
		return remaining > 0
	})

	for _, level := range emptyLevels {
		opposite.Delete(level)
	}
	for _, id := range removedOrders {
		delete(b.locations, id)
	}

	if limitPrice == nil && remaining == quantity {
		return result, errInsufficientLiquidity(side, quantity, 0)
	}

	result.RemainingQuantity = remaining
	result.IsComplete = remaining == 0
	b.emitTrade(result)
	return result, nil
}

// MatchLimitOrder matches an incoming limit order against the book without
// resting the unfilled remainder; the caller (the dispatcher) decides
// whether to add the remainder as a new resting order.
func (b *OrderBook) MatchLimitOrder(orderID, quantity uint64, side Side, price uint64) (MatchResult, error) {
	p := price
	return b.MatchOrder(orderID, side, quantity, &p)
}

// SubmitMarketOrder matches an incoming market order; it never rests.
func (b *OrderBook) SubmitMarketOrder(orderID, quantity uint64, side Side) (MatchResult, error) {
	return b.MatchOrder(orderID, side, quantity, nil)
}

// PeekMatch is a read-only simulation of how much of quantity could be
// matched against current resting liquidity, without mutating any state.
func (b *OrderBook) PeekMatch(side Side, quantity uint64, priceLimit *uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	opposite := b.sideMap(side.Opposite())
	if opposite.Len() == 0 {
		return 0
	}

	var matched uint64
	opposite.Scan(func(level *PriceLevel) bool {
		if matched >= quantity {
			return false
		}
		if priceLimit != nil {
			switch side {
			case Buy:
				if level.Price() > *priceLimit {
					return false
				}
			case Sell:
				if level.Price() < *priceLimit {
					return false
				}
			}
		}
		need := quantity - matched
		available := level.TotalQuantity()
		take := need
		if available < take {
			take = available
		}
		matched += take
		return true
	})
	return matched
}

// WillCrossMarket reports whether an incoming order at price/side would
// immediately cross the book; exported for the dispatcher's aggressiveness
// check in the command dispatch table.
func (b *OrderBook) WillCrossMarket(price uint64, side Side) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.willCrossMarket(price, side)
}
