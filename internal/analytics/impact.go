// Package analytics provides read-only projections over an order book's
// current state: market-impact simulation for a hypothetical order, depth
// statistics and distribution, and a versioned, checksummed snapshot format
// for the external boundary. None of these mutate the book.
package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/kestrelmd/matchbook/internal/book"
)

// MarketImpact summarizes how a hypothetical order of a given size would
// move the market if executed immediately, without mutating the book.
// avg_price and slippage_bps are presentation-layer figures and are the one
// place this engine reaches for decimal.Decimal rather than its native
// integer tick arithmetic.
type MarketImpact struct {
	AvgPrice                decimal.Decimal
	WorstPrice              uint64
	Slippage                uint64
	SlippageBps             decimal.Decimal
	LevelsConsumed          int
	TotalQuantityAvailable  uint64
}

func EmptyMarketImpact() MarketImpact {
	return MarketImpact{AvgPrice: decimal.Zero, SlippageBps: decimal.Zero}
}

func (m MarketImpact) CanFill(requested uint64) bool {
	return m.TotalQuantityAvailable >= requested
}

func (m MarketImpact) FillRatio(requested uint64) decimal.Decimal {
	if requested == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(m.TotalQuantityAvailable)).
		Div(decimal.NewFromInt(int64(requested)))
}

// Fill is one (price, quantity) step of a simulated execution.
type Fill struct {
	Price    uint64
	Quantity uint64
}

// OrderSimulation is the step-by-step trace a SimulateOrder call produces.
type OrderSimulation struct {
	Fills             []Fill
	AvgPrice          decimal.Decimal
	TotalFilled       uint64
	RemainingQuantity uint64
}

func (s OrderSimulation) IsFullyFilled() bool { return s.RemainingQuantity == 0 }
func (s OrderSimulation) LevelsCount() int    { return len(s.Fills) }

// TotalCost returns price*quantity summed across every fill.
func (s OrderSimulation) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, f := range s.Fills {
		total = total.Add(decimal.NewFromInt(int64(f.Price)).Mul(decimal.NewFromInt(int64(f.Quantity))))
	}
	return total
}

// SimulateOrder walks b's opposite side exactly like PeekMatch but records
// each level's contribution, producing a full fill trace instead of just a
// total. Read-only: no order is placed and no listener fires.
func SimulateOrder(b *book.OrderBook, side book.Side, quantity uint64) OrderSimulation {
	levels := b.Levels(side.Opposite())
	sim := OrderSimulation{RemainingQuantity: quantity}

	var totalCost decimal.Decimal
	for _, level := range levels {
		if sim.RemainingQuantity == 0 {
			break
		}
		available := level.TotalQuantity()
		take := sim.RemainingQuantity
		if available < take {
			take = available
		}
		if take == 0 {
			continue
		}
		sim.Fills = append(sim.Fills, Fill{Price: level.Price(), Quantity: take})
		sim.TotalFilled += take
		sim.RemainingQuantity -= take
		totalCost = totalCost.Add(decimal.NewFromInt(int64(level.Price())).Mul(decimal.NewFromInt(int64(take))))
	}
	if sim.TotalFilled > 0 {
		sim.AvgPrice = totalCost.Div(decimal.NewFromInt(int64(sim.TotalFilled)))
	}
	return sim
}

// ComputeMarketImpact derives MarketImpact from a simulation plus the book's
// current best opposite price (the reference point slippage is measured
// from).
func ComputeMarketImpact(b *book.OrderBook, side book.Side, quantity uint64) MarketImpact {
	sim := SimulateOrder(b, side, quantity)
	if sim.TotalFilled == 0 {
		return EmptyMarketImpact()
	}

	var bestPrice uint64
	var hasBest bool
	if side == book.Buy {
		bestPrice, hasBest = b.BestAsk()
	} else {
		bestPrice, hasBest = b.BestBid()
	}

	worst := sim.Fills[len(sim.Fills)-1].Price
	var slippage uint64
	var slippageBps decimal.Decimal
	if hasBest {
		if side == book.Buy && worst > bestPrice {
			slippage = worst - bestPrice
		} else if side == book.Sell && bestPrice > worst {
			slippage = bestPrice - worst
		}
		if bestPrice > 0 {
			slippageBps = decimal.NewFromInt(int64(slippage)).
				Div(decimal.NewFromInt(int64(bestPrice))).
				Mul(decimal.NewFromInt(10000))
		}
	}

	return MarketImpact{
		AvgPrice:               sim.AvgPrice,
		WorstPrice:             worst,
		Slippage:               slippage,
		SlippageBps:            slippageBps,
		LevelsConsumed:         sim.LevelsCount(),
		TotalQuantityAvailable: sim.TotalFilled,
	}
}
