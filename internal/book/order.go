package book

// Side identifies which side of the book an order rests on or matches against.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side, used when walking the opposing book
// during matching.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TIFKind enumerates the time-in-force policies an order can carry.
type TIFKind int

const (
	GTC TIFKind = iota
	IOC
	FOK
	GTD
	DAY
)

// TimeInForce bundles a policy with the data it needs (only GTD uses ExpiryMs).
type TimeInForce struct {
	Kind     TIFKind
	ExpiryMs int64
}

// IsExpired reports whether the order should no longer be eligible to rest,
// evaluated against wall-clock milliseconds and an optional per-book market
// close timestamp that augments DAY semantics.
func (t TimeInForce) IsExpired(nowMs int64, marketCloseMs *int64) bool {
	switch t.Kind {
	case GTD:
		return nowMs >= t.ExpiryMs
	case DAY:
		return marketCloseMs != nil && nowMs >= *marketCloseMs
	default:
		return false
	}
}

// CanRest reports whether an order with this time-in-force is ever allowed
// to remain on the book once it stops being immediately matchable. IOC and
// FOK orders are taker-only: any unfilled remainder must be discarded by the
// dispatcher rather than rested.
func (t TimeInForce) CanRest() bool {
	return t.Kind != IOC && t.Kind != FOK
}

// ReferencePriceType distinguishes what a Pegged order's offset is relative to.
type ReferencePriceType int

const (
	ReferenceBestBid ReferencePriceType = iota
	ReferenceBestAsk
	ReferenceMid
)

// Kind discriminates the order-type variant, used by dispatch tables that
// select variant-specific match/replenish behavior.
type Kind int

const (
	KindStandard Kind = iota
	KindIceberg
	KindPostOnly
	KindTrailingStop
	KindPegged
	KindMarketToLimit
	KindReserve
)

// OrderType is the tagged-variant interface shared by every order kind.
// Concrete variants carry their own extra fields (visible/hidden split,
// trailing amount, reference offset, replenishment policy) but all expose
// this common surface to the matching engine.
type OrderType interface {
	ID() uint64
	Price() uint64
	SetPrice(price uint64)
	Side() Side
	Kind() Kind
	TimestampMs() int64
	TimeInForce() TimeInForce
	VisibleQuantity() uint64
	HiddenQuantity() uint64
	IsFilled() bool
	// Fill consumes up to qty from the order (promoting hidden quantity into
	// visible per the variant's replenishment rule along the way) and
	// returns the quantity actually consumed.
	Fill(qty uint64) uint64
	// Clone returns a deep copy. UpdateOrder does not use it: it rebuilds
	// the order through the variant's constructor instead.
	Clone() OrderType
}

type base struct {
	id          uint64
	price       uint64
	side        Side
	timestampMs int64
	tif         TimeInForce
}

func (b *base) ID() uint64               { return b.id }
func (b *base) Price() uint64            { return b.price }
func (b *base) SetPrice(price uint64)    { b.price = price }
func (b *base) Side() Side               { return b.side }
func (b *base) TimestampMs() int64       { return b.timestampMs }
func (b *base) TimeInForce() TimeInForce { return b.tif }

// Standard is a plain limit order carrying a single remaining quantity.
type Standard struct {
	base
	Quantity uint64
}

func NewStandard(id, price uint64, side Side, timestampMs int64, tif TimeInForce, quantity uint64) *Standard {
	return &Standard{base: base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif}, Quantity: quantity}
}

func (o *Standard) Kind() Kind               { return KindStandard }
func (o *Standard) VisibleQuantity() uint64  { return o.Quantity }
func (o *Standard) HiddenQuantity() uint64   { return 0 }
func (o *Standard) IsFilled() bool           { return o.Quantity == 0 }
func (o *Standard) Clone() OrderType         { c := *o; return &c }
func (o *Standard) Fill(qty uint64) uint64 {
	filled := min(qty, o.Quantity)
	o.Quantity -= filled
	return filled
}

// PostOnly must not cross on entry; the crossing check happens at insertion
// time (see modifications.go), not during Fill, so its matching behavior is
// identical to Standard once resting.
type PostOnly struct {
	base
	Quantity uint64
}

func NewPostOnly(id, price uint64, side Side, timestampMs int64, tif TimeInForce, quantity uint64) *PostOnly {
	return &PostOnly{base: base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif}, Quantity: quantity}
}

func (o *PostOnly) Kind() Kind              { return KindPostOnly }
func (o *PostOnly) VisibleQuantity() uint64 { return o.Quantity }
func (o *PostOnly) HiddenQuantity() uint64  { return 0 }
func (o *PostOnly) IsFilled() bool          { return o.Quantity == 0 }
func (o *PostOnly) Clone() OrderType        { c := *o; return &c }
func (o *PostOnly) Fill(qty uint64) uint64 {
	filled := min(qty, o.Quantity)
	o.Quantity -= filled
	return filled
}

// MarketToLimit carries a single remaining quantity and its Fill behaves
// like Standard. Nothing in this module enters it as a market order or
// rests its remainder at the last execution price: the dispatcher only
// builds Standard orders, and the wire format has no MarketToLimit kind.
type MarketToLimit struct {
	base
	Quantity uint64
}

func NewMarketToLimit(id, price uint64, side Side, timestampMs int64, tif TimeInForce, quantity uint64) *MarketToLimit {
	return &MarketToLimit{base: base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif}, Quantity: quantity}
}

func (o *MarketToLimit) Kind() Kind              { return KindMarketToLimit }
func (o *MarketToLimit) VisibleQuantity() uint64 { return o.Quantity }
func (o *MarketToLimit) HiddenQuantity() uint64  { return 0 }
func (o *MarketToLimit) IsFilled() bool          { return o.Quantity == 0 }
func (o *MarketToLimit) Clone() OrderType        { c := *o; return &c }
func (o *MarketToLimit) Fill(qty uint64) uint64 {
	filled := min(qty, o.Quantity)
	o.Quantity -= filled
	return filled
}

// TrailingStop carries a trail amount and the reference price it last
// recomputed its stop price from. Recomputation in response to market data
// is outside the bounded command-channel collaborator interface (see the
// Open Question decisions in DESIGN.md); RecomputePrice is exposed so a
// future reference-price feed can drive it without changing the matching
// engine.
type TrailingStop struct {
	base
	Quantity            uint64
	TrailAmount         uint64
	LastReferencePrice  uint64
}

func NewTrailingStop(id, price uint64, side Side, timestampMs int64, tif TimeInForce, quantity, trailAmount, lastReferencePrice uint64) *TrailingStop {
	return &TrailingStop{
		base:               base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif},
		Quantity:           quantity,
		TrailAmount:        trailAmount,
		LastReferencePrice: lastReferencePrice,
	}
}

func (o *TrailingStop) Kind() Kind              { return KindTrailingStop }
func (o *TrailingStop) VisibleQuantity() uint64 { return o.Quantity }
func (o *TrailingStop) HiddenQuantity() uint64  { return 0 }
func (o *TrailingStop) IsFilled() bool          { return o.Quantity == 0 }
func (o *TrailingStop) Clone() OrderType        { c := *o; return &c }
func (o *TrailingStop) Fill(qty uint64) uint64 {
	filled := min(qty, o.Quantity)
	o.Quantity -= filled
	return filled
}

// RecomputePrice trails the stop price behind a new reference price,
// respecting the side (a Buy trailing stop trails downward, a Sell trailing
// stop trails upward) and never retreating.
func (o *TrailingStop) RecomputePrice(newReference uint64) {
	if o.Side() == Buy {
		candidate := newReference + o.TrailAmount
		if o.LastReferencePrice == 0 || newReference < o.LastReferencePrice {
			o.price = candidate
		}
	} else {
		var candidate uint64
		if newReference > o.TrailAmount {
			candidate = newReference - o.TrailAmount
		}
		if newReference > o.LastReferencePrice {
			o.price = candidate
		}
	}
	o.LastReferencePrice = newReference
}

// Pegged tracks a reference price (best bid, best ask, or mid) plus/minus an
// offset. Like TrailingStop, continuous repricing is a peripheral concern;
// RecomputePrice is exposed for a caller that owns a market-data reference.
type Pegged struct {
	base
	Quantity          uint64
	ReferenceOffset   int64
	ReferenceType     ReferencePriceType
}

func NewPegged(id, price uint64, side Side, timestampMs int64, tif TimeInForce, quantity uint64, referenceOffset int64, referenceType ReferencePriceType) *Pegged {
	return &Pegged{
		base:            base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif},
		Quantity:        quantity,
		ReferenceOffset: referenceOffset,
		ReferenceType:   referenceType,
	}
}

func (o *Pegged) Kind() Kind              { return KindPegged }
func (o *Pegged) VisibleQuantity() uint64 { return o.Quantity }
func (o *Pegged) HiddenQuantity() uint64  { return 0 }
func (o *Pegged) IsFilled() bool          { return o.Quantity == 0 }
func (o *Pegged) Clone() OrderType        { c := *o; return &c }
func (o *Pegged) Fill(qty uint64) uint64 {
	filled := min(qty, o.Quantity)
	o.Quantity -= filled
	return filled
}

// RecomputePrice re-pegs the order's price off a fresh reference price.
func (o *Pegged) RecomputePrice(reference uint64) {
	p := int64(reference) + o.ReferenceOffset
	if p < 0 {
		p = 0
	}
	o.price = uint64(p)
}

// Iceberg exposes only VisibleQuantity at a time; once fully consumed it is
// automatically replenished from HiddenQuantity back up to its original
// visible slice size.
type Iceberg struct {
	base
	Visible         uint64
	Hidden          uint64
	originalVisible uint64
}

func NewIceberg(id, price uint64, side Side, timestampMs int64, tif TimeInForce, visible, hidden uint64) *Iceberg {
	return &Iceberg{
		base:            base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif},
		Visible:         visible,
		Hidden:          hidden,
		originalVisible: visible,
	}
}

func (o *Iceberg) Kind() Kind              { return KindIceberg }
func (o *Iceberg) VisibleQuantity() uint64 { return o.Visible }
func (o *Iceberg) HiddenQuantity() uint64  { return o.Hidden }
func (o *Iceberg) IsFilled() bool          { return o.Visible == 0 && o.Hidden == 0 }
func (o *Iceberg) Clone() OrderType        { c := *o; return &c }

func (o *Iceberg) Fill(qty uint64) uint64 {
	var totalFilled uint64
	for qty > 0 {
		if o.Visible == 0 {
			replenish := min(o.originalVisible, o.Hidden)
			if replenish == 0 {
				break
			}
			o.Visible += replenish
			o.Hidden -= replenish
		}
		f := min(qty, o.Visible)
		if f == 0 {
			break
		}
		o.Visible -= f
		qty -= f
		totalFilled += f
	}
	return totalFilled
}

// Reserve behaves like Iceberg but its replenishment is gated by an explicit
// threshold/amount policy and an auto_replenish flag rather than always
// refilling to the original visible size.
type Reserve struct {
	base
	Visible            uint64
	Hidden             uint64
	ReplenishThreshold uint64
	ReplenishAmount    uint64
	AutoReplenish      bool
}

func NewReserve(id, price uint64, side Side, timestampMs int64, tif TimeInForce, visible, hidden, replenishThreshold, replenishAmount uint64, autoReplenish bool) *Reserve {
	return &Reserve{
		base:               base{id: id, price: price, side: side, timestampMs: timestampMs, tif: tif},
		Visible:            visible,
		Hidden:             hidden,
		ReplenishThreshold: replenishThreshold,
		ReplenishAmount:    replenishAmount,
		AutoReplenish:      autoReplenish,
	}
}

func (o *Reserve) Kind() Kind              { return KindReserve }
func (o *Reserve) VisibleQuantity() uint64 { return o.Visible }
func (o *Reserve) HiddenQuantity() uint64  { return o.Hidden }
func (o *Reserve) Clone() OrderType        { c := *o; return &c }

func (o *Reserve) IsFilled() bool {
	if o.Visible > 0 {
		return false
	}
	if o.AutoReplenish && o.Hidden > 0 {
		return false
	}
	return true
}

// Replenish is the explicit lifecycle operation named in the data model
// (alongside add/cancel/modify/expire): it tops up Visible from Hidden by
// min(ReplenishAmount, Hidden), independent of AutoReplenish, so a caller
// (or a future manual-replenish command) can trigger it directly.
func (o *Reserve) Replenish() uint64 {
	amount := min(o.ReplenishAmount, o.Hidden)
	o.Visible += amount
	o.Hidden -= amount
	return amount
}

func (o *Reserve) Fill(qty uint64) uint64 {
	var totalFilled uint64
	for qty > 0 && o.Visible > 0 {
		f := min(qty, o.Visible)
		o.Visible -= f
		qty -= f
		totalFilled += f
		if o.AutoReplenish && o.Visible <= o.ReplenishThreshold && o.Hidden > 0 {
			o.Replenish()
		}
	}
	return totalFilled
}
