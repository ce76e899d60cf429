package book

// MatchResult is the outcome of a single match_order call, covering both
// the limit-walk-the-book and market-sweep cases.
type MatchResult struct {
	OrderID           uint64
	Transactions      []Transaction
	FilledOrderIDs    []uint64
	RemainingQuantity uint64
	IsComplete        bool
}

func (m MatchResult) ExecutedQuantity() uint64 {
	var total uint64
	for _, t := range m.Transactions {
		total += t.Quantity
	}
	return total
}

// TradeResult is delivered to a TradeListener once per MatchOrder call that
// produced at least one transaction. Symbol lets a listener shared across
// many books tell them apart.
type TradeResult struct {
	Symbol      string
	MatchResult MatchResult
}

// TradeListener observes completed matches. Implementations must not block
// indefinitely: they run synchronously on the dispatcher's goroutine.
type TradeListener func(TradeResult)

// PriceLevelChangedEvent is emitted after every mutation affecting the
// aggregate visible quantity at (side, price). Quantity is the post-mutation
// visible total, zero once the level has been removed.
type PriceLevelChangedEvent struct {
	Side     Side
	Price    uint64
	Quantity uint64
}

// PriceLevelChangedListener observes level-quantity changes. Same
// synchronous, non-blocking contract as TradeListener.
type PriceLevelChangedListener func(PriceLevelChangedEvent)
