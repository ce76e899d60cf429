package book

// Transaction records one maker/taker fill produced during matching.
type Transaction struct {
	TxnID    uint64
	Price    uint64
	Quantity uint64
	MakerID  uint64
	TakerID  uint64
}

// LevelMatch is the result of running PriceLevel.MatchOrder once.
type LevelMatch struct {
	Transactions      []Transaction
	FilledOrderIDs    []uint64
	ExpiredOrderIDs   []uint64
	RemainingQuantity uint64
}

// TxnIDGenerator hands out a per-book monotonically increasing transaction
// id. Cross-book uniqueness is not required by any listener contract.
type TxnIDGenerator struct {
	next uint64
}

func (g *TxnIDGenerator) Next() uint64 {
	g.next++
	return g.next
}

// PriceLevel is a strict FIFO queue of resting orders at a single price.
// Invariant: VisibleQuantity() equals the sum of each order's visible
// contribution; OrderCount() equals the length of the queue.
type PriceLevel struct {
	price      uint64
	orders     []OrderType
	visibleSum uint64
	hiddenSum  uint64
}

func NewPriceLevel(price uint64) *PriceLevel {
	return &PriceLevel{price: price}
}

func (pl *PriceLevel) Price() uint64           { return pl.price }
func (pl *PriceLevel) OrderCount() int         { return len(pl.orders) }
func (pl *PriceLevel) VisibleQuantity() uint64 { return pl.visibleSum }
func (pl *PriceLevel) HiddenQuantity() uint64  { return pl.hiddenSum }
func (pl *PriceLevel) TotalQuantity() uint64   { return pl.visibleSum + pl.hiddenSum }

// Orders exposes the live FIFO queue; callers must not mutate the slice.
func (pl *PriceLevel) Orders() []OrderType { return pl.orders }

// AddOrder appends to the tail of the queue, the arrival-order tie-break
// used by the matching engine.
func (pl *PriceLevel) AddOrder(o OrderType) {
	pl.orders = append(pl.orders, o)
	pl.visibleSum += o.VisibleQuantity()
	pl.hiddenSum += o.HiddenQuantity()
}

// CancelOrder removes an order by id anywhere in the queue. n per level is
// small in practice, so a linear scan is acceptable.
func (pl *PriceLevel) CancelOrder(id uint64) bool {
	for i, o := range pl.orders {
		if o.ID() == id {
			pl.visibleSum -= o.VisibleQuantity()
			pl.hiddenSum -= o.HiddenQuantity()
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			return true
		}
	}
	return false
}

// FindOrder returns the live order by id without removing it.
func (pl *PriceLevel) FindOrder(id uint64) (OrderType, bool) {
	for _, o := range pl.orders {
		if o.ID() == id {
			return o, true
		}
	}
	return nil, false
}

func (pl *PriceLevel) recomputeSums() {
	var visible, hidden uint64
	for _, o := range pl.orders {
		visible += o.VisibleQuantity()
		hidden += o.HiddenQuantity()
	}
	pl.visibleSum = visible
	pl.hiddenSum = hidden
}

// MatchOrder consumes resting orders head-first until incomingQty is
// exhausted or the queue empties. Every maker is checked for expiry at the
// moment it is about to be matched, not just a head-aligned prefix: GTD
// expiry is assigned independently of arrival order, so an order can be
// expired while one ahead of it in the same queue is not. An expired maker
// is dropped without generating a transaction and matching continues
// against the next position. Iceberg/Reserve orders promote hidden into
// visible per their own Fill rule; hidden quantity never participates in a
// match until promoted.
func (pl *PriceLevel) MatchOrder(incomingQty, takerID uint64, nowMs int64, marketCloseMs *int64, gen *TxnIDGenerator) LevelMatch {
	var result LevelMatch
	remaining := incomingQty
	consumed := 0

	for remaining > 0 && consumed < len(pl.orders) {
		maker := pl.orders[consumed]
		if maker.TimeInForce().IsExpired(nowMs, marketCloseMs) {
			result.ExpiredOrderIDs = append(result.ExpiredOrderIDs, maker.ID())
			consumed++
			continue
		}
		filled := maker.Fill(remaining)
		if filled > 0 {
			remaining -= filled
			result.Transactions = append(result.Transactions, Transaction{
				TxnID:    gen.Next(),
				Price:    pl.price,
				Quantity: filled,
				MakerID:  maker.ID(),
				TakerID:  takerID,
			})
		}
		if maker.IsFilled() {
			result.FilledOrderIDs = append(result.FilledOrderIDs, maker.ID())
			consumed++
			continue
		}
		if filled == 0 {
			// Defensive: an order that consumed nothing and isn't filled
			// cannot make further progress; stop rather than loop forever.
			break
		}
	}

	if consumed > 0 {
		pl.orders = pl.orders[consumed:]
	}
	pl.recomputeSums()

	result.RemainingQuantity = remaining
	return result
}
