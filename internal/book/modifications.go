package book

// AddLimitOrder inserts order as a resting limit order, enforcing:
//  1. price != 0
//  2. no duplicate order id
//  3. the order's time-in-force is not already expired
//  4. a PostOnly order does not cross the market
// On success it records the order's location, emits PriceLevelChanged for
// the affected (side, price), and invalidates the best-price cache.
func (b *OrderBook) AddLimitOrder(order OrderType) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	price := order.Price()
	if price == 0 {
		return errInvalidPriceLevel(price)
	}
	if _, exists := b.locations[order.ID()]; exists {
		return errInvalidOperation("duplicate order id")
	}
	if order.TimeInForce().IsExpired(nowMs(), b.marketClose()) {
		return errInvalidOperation("order time-in-force already expired")
	}
	side := order.Side()
	if order.Kind() == KindPostOnly {
		if b.willCrossMarket(price, side) {
			var opposite uint64
			if side == Buy {
				opposite, _ = b.bestLocked(Sell)
			} else {
				opposite, _ = b.bestLocked(Buy)
			}
			return errPriceCrossing(price, side, opposite)
		}
	}

	levels := b.sideMap(side)
	level, ok := levels.Get(&PriceLevel{price: price})
	if !ok {
		level = NewPriceLevel(price)
		levels.Set(level)
	}
	level.AddOrder(order)
	b.locations[order.ID()] = orderLocation{price: price, side: side}

	b.cache.invalidate()
	b.emitLevelChanged(side, price, level.VisibleQuantity())
	return nil
}

// CancelOrder removes a live order by id.
func (b *OrderBook) CancelOrder(orderID uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.removeOrderLocked(orderID)
	return err
}

// removeOrderLocked is the shared cancel primitive used by both CancelOrder
// and UpdateOrder. It returns the removed order; neither caller uses it
// (UpdateOrder rebuilds from the order it looked up before cancelling).
func (b *OrderBook) removeOrderLocked(orderID uint64) (OrderType, error) {
	loc, ok := b.locations[orderID]
	if !ok {
		return nil, errOrderNotFound(orderID)
	}
	levels := b.sideMap(loc.side)
	level, ok := levels.Get(&PriceLevel{price: loc.price})
	if !ok {
		return nil, errOrderNotFound(orderID)
	}
	removed, ok := level.FindOrder(orderID)
	if !ok {
		return nil, errOrderNotFound(orderID)
	}
	level.CancelOrder(orderID)

	quantity := level.VisibleQuantity()
	if level.OrderCount() == 0 {
		levels.Delete(level)
		quantity = 0
	}
	delete(b.locations, orderID)

	b.cache.invalidate()
	b.emitLevelChanged(loc.side, loc.price, quantity)
	return removed, nil
}

// OrderUpdate names the only modify shape the core supports: full
// replacement of price and quantity under the same order id.
type OrderUpdate struct {
	OrderID     uint64
	NewPrice    uint64
	NewQuantity uint64
}

// UpdateOrder implements modify as cancel-then-re-add under the same id,
// which is a full loss of time priority at the new price: the re-added
// order enters at the tail of the destination level's FIFO. Iceberg and
// Reserve orders are rejected because their visible/hidden split cannot be
// unambiguously rederived from a single new quantity.
func (b *OrderBook) UpdateOrder(update OrderUpdate) error {
	b.mu.Lock()
	loc, ok := b.locations[update.OrderID]
	if !ok {
		b.mu.Unlock()
		return errOrderNotFound(update.OrderID)
	}
	levels := b.sideMap(loc.side)
	level, ok := levels.Get(&PriceLevel{price: loc.price})
	if !ok {
		b.mu.Unlock()
		return errOrderNotFound(update.OrderID)
	}
	existing, ok := level.FindOrder(update.OrderID)
	if !ok {
		b.mu.Unlock()
		return errOrderNotFound(update.OrderID)
	}
	switch existing.Kind() {
	case KindIceberg, KindReserve:
		b.mu.Unlock()
		return errInvalidOperation("update_order does not support iceberg/reserve hidden quantity redistribution")
	}
	b.mu.Unlock()

	if _, err := b.removeOrderLocked2(update.OrderID); err != nil {
		return err
	}

	replacement := rebuildWithPriceAndQuantity(existing, update.NewPrice, update.NewQuantity)
	if ts, ok := replacement.(timestamped); ok {
		ts.setTimestamp(nowMs())
	}
	return b.AddLimitOrder(replacement)
}

// removeOrderLocked2 takes the lock itself; UpdateOrder cannot hold it
// across AddLimitOrder's own locking, so cancellation is a separate
// critical section from the validation above.
func (b *OrderBook) removeOrderLocked2(orderID uint64) (OrderType, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeOrderLocked(orderID)
}

// timestamped is implemented by every order variant via the embedded base;
// it lets UpdateOrder stamp a fresh arrival time on the rebuilt order
// without a type switch for that one field.
type timestamped interface {
	setTimestamp(ms int64)
}

func (b *base) setTimestamp(ms int64) { b.timestampMs = ms }

func rebuildWithPriceAndQuantity(o OrderType, newPrice, newQuantity uint64) OrderType {
	switch v := o.(type) {
	case *Standard:
		return NewStandard(v.ID(), newPrice, v.Side(), v.TimestampMs(), v.TimeInForce(), newQuantity)
	case *PostOnly:
		return NewPostOnly(v.ID(), newPrice, v.Side(), v.TimestampMs(), v.TimeInForce(), newQuantity)
	case *MarketToLimit:
		return NewMarketToLimit(v.ID(), newPrice, v.Side(), v.TimestampMs(), v.TimeInForce(), newQuantity)
	case *TrailingStop:
		return NewTrailingStop(v.ID(), newPrice, v.Side(), v.TimestampMs(), v.TimeInForce(), newQuantity, v.TrailAmount, v.LastReferencePrice)
	case *Pegged:
		return NewPegged(v.ID(), newPrice, v.Side(), v.TimestampMs(), v.TimeInForce(), newQuantity, v.ReferenceOffset, v.ReferenceType)
	default:
		// Unreachable: Iceberg/Reserve are rejected before this is called.
		panic("rebuildWithPriceAndQuantity: unsupported order kind")
	}
}
