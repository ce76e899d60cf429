package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gtc() TimeInForce { return TimeInForce{Kind: GTC} }

func TestPriceLevelFIFOOrder(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.AddOrder(NewStandard(1, 100, Buy, 1, gtc(), 10))
	pl.AddOrder(NewStandard(2, 100, Buy, 2, gtc(), 10))

	gen := &TxnIDGenerator{}
	match := pl.MatchOrder(15, 99, 0, nil, gen)

	require.Len(t, match.Transactions, 2)
	assert.Equal(t, uint64(10), match.Transactions[0].Quantity)
	assert.Equal(t, uint64(5), match.Transactions[1].Quantity)
	assert.Equal(t, uint64(1), match.Transactions[0].MakerID)
	assert.Equal(t, uint64(2), match.Transactions[1].MakerID)
	assert.Equal(t, []uint64{1}, match.FilledOrderIDs)
	assert.Equal(t, uint64(0), match.RemainingQuantity)
	assert.Equal(t, 1, pl.OrderCount())
	assert.Equal(t, uint64(5), pl.VisibleQuantity())
}

func TestPriceLevelCancelOrder(t *testing.T) {
	pl := NewPriceLevel(100)
	pl.AddOrder(NewStandard(1, 100, Buy, 1, gtc(), 10))
	pl.AddOrder(NewStandard(2, 100, Buy, 2, gtc(), 20))

	assert.True(t, pl.CancelOrder(1))
	assert.False(t, pl.CancelOrder(1))
	assert.Equal(t, 1, pl.OrderCount())
	assert.Equal(t, uint64(20), pl.VisibleQuantity())
}

func TestPriceLevelExpiredOrdersDoNotMatch(t *testing.T) {
	pl := NewPriceLevel(100)
	expiry := int64(500)
	pl.AddOrder(NewStandard(1, 100, Buy, 1, TimeInForce{Kind: GTD, ExpiryMs: expiry}, 10))
	pl.AddOrder(NewStandard(2, 100, Buy, 2, gtc(), 10))

	gen := &TxnIDGenerator{}
	match := pl.MatchOrder(5, 99, 1000, nil, gen)

	require.Len(t, match.Transactions, 1)
	assert.Equal(t, uint64(2), match.Transactions[0].MakerID)
	assert.Equal(t, 1, pl.OrderCount())
}

func TestPriceLevelNonHeadExpiredOrderIsSkippedNotMatched(t *testing.T) {
	pl := NewPriceLevel(100)
	// A arrives first with a distant expiry; B arrives second but expires
	// sooner, since GTD expiry is assigned independently of arrival order.
	pl.AddOrder(NewStandard(1, 100, Buy, 1, TimeInForce{Kind: GTD, ExpiryMs: 10000}, 5))
	pl.AddOrder(NewStandard(2, 100, Buy, 2, TimeInForce{Kind: GTD, ExpiryMs: 500}, 10))
	pl.AddOrder(NewStandard(3, 100, Buy, 3, gtc(), 10))

	gen := &TxnIDGenerator{}
	match := pl.MatchOrder(20, 99, 600, nil, gen)

	require.Len(t, match.Transactions, 2)
	assert.Equal(t, uint64(1), match.Transactions[0].MakerID)
	assert.Equal(t, uint64(5), match.Transactions[0].Quantity)
	assert.Equal(t, uint64(3), match.Transactions[1].MakerID)
	assert.Equal(t, uint64(10), match.Transactions[1].Quantity)
	assert.Equal(t, []uint64{2}, match.ExpiredOrderIDs)
	assert.Equal(t, uint64(5), match.RemainingQuantity)
	assert.Equal(t, 0, pl.OrderCount())
}

func TestIcebergReplenishment(t *testing.T) {
	o := NewIceberg(1, 100, Sell, 0, gtc(), 10, 30)
	filled := o.Fill(25)
	assert.Equal(t, uint64(25), filled)
	assert.False(t, o.IsFilled())
	assert.Equal(t, uint64(5), o.Visible)
	assert.Equal(t, uint64(10), o.Hidden)

	filled = o.Fill(15)
	assert.Equal(t, uint64(15), filled)
	assert.True(t, o.IsFilled())
	assert.Equal(t, uint64(0), o.Visible)
	assert.Equal(t, uint64(0), o.Hidden)
}

func TestReserveAutoReplenish(t *testing.T) {
	o := NewReserve(1, 100, Sell, 0, gtc(), 10, 40, 5, 10, true)
	filled := o.Fill(8)
	assert.Equal(t, uint64(8), filled)
	// Visible dropped to 2, at/below threshold 5, auto-replenished by 10.
	assert.Equal(t, uint64(12), o.Visible)
	assert.Equal(t, uint64(30), o.Hidden)
	assert.False(t, o.IsFilled())
}

func TestReserveNoAutoReplenishFillsAtVisibleZero(t *testing.T) {
	o := NewReserve(1, 100, Sell, 0, gtc(), 10, 40, 5, 10, false)
	filled := o.Fill(10)
	assert.Equal(t, uint64(10), filled)
	assert.Equal(t, uint64(0), o.Visible)
	assert.Equal(t, uint64(40), o.Hidden)
	assert.True(t, o.IsFilled())
}

func TestTrailingStopRecomputePrice(t *testing.T) {
	o := NewTrailingStop(1, 0, Buy, 0, gtc(), 10, 5, 0)
	o.RecomputePrice(100)
	assert.Equal(t, uint64(105), o.Price())

	// Reference rises; a buy trailing stop only tightens on a falling reference.
	o.RecomputePrice(110)
	assert.Equal(t, uint64(105), o.Price())

	o.RecomputePrice(90)
	assert.Equal(t, uint64(95), o.Price())
}
