package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func std(id, price uint64, side Side, qty uint64) *Standard {
	return NewStandard(id, price, side, int64(id), gtc(), qty)
}

// S1: simple cross. A resting sell at 100 for 10, then a buy at 100 for 4
// partially fills the sell and leaves 6 resting.
func TestScenarioSimpleCross(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Sell, 10)))

	result, err := b.MatchLimitOrder(2, 4, Buy, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), result.ExecutedQuantity())
	assert.Equal(t, uint64(0), result.RemainingQuantity)

	ask, ok := b.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(100), ask)
	assert.Equal(t, 1, b.OrderCount())
}

// S2: market order against an empty book returns InsufficientLiquidity.
func TestScenarioMarketOrderOnEmptyBook(t *testing.T) {
	b := NewOrderBook("X")
	_, err := b.SubmitMarketOrder(1, 5, Buy)
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Equal(t, KindInsufficientLiquidity, bookErr.Kind)
}

// S3: walk the book across multiple price levels.
func TestScenarioWalkTheBook(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Sell, 5)))
	require.NoError(t, b.AddLimitOrder(std(2, 101, Sell, 5)))
	require.NoError(t, b.AddLimitOrder(std(3, 102, Sell, 5)))

	result, err := b.SubmitMarketOrder(4, 12, Buy)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), result.ExecutedQuantity())
	require.Len(t, result.Transactions, 3)
	assert.Equal(t, uint64(100), result.Transactions[0].Price)
	assert.Equal(t, uint64(101), result.Transactions[1].Price)
	assert.Equal(t, uint64(102), result.Transactions[2].Price)
	assert.Equal(t, uint64(2), result.Transactions[2].Quantity)
	assert.Equal(t, 1, b.OrderCount())
}

// S4: cancel then modify against the same id fails with OrderNotFound.
func TestScenarioCancelThenModifyFails(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Buy, 10)))
	require.NoError(t, b.CancelOrder(1))

	err := b.UpdateOrder(OrderUpdate{OrderID: 1, NewPrice: 100, NewQuantity: 5})
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Equal(t, KindOrderNotFound, bookErr.Kind)
}

// S5: modify loses time priority - re-enters at the tail of the same level.
func TestScenarioModifyLosesTimePriority(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Buy, 10)))
	require.NoError(t, b.AddLimitOrder(std(2, 100, Buy, 10)))

	require.NoError(t, b.UpdateOrder(OrderUpdate{OrderID: 1, NewPrice: 100, NewQuantity: 10}))

	result, err := b.MatchLimitOrder(3, 10, Sell, 100)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, uint64(2), result.Transactions[0].MakerID)
}

// S6: PostOnly that would cross the market is rejected.
func TestScenarioPostOnlyRejection(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Sell, 10)))

	postOnly := NewPostOnly(2, 101, Buy, 1, gtc(), 5)
	err := b.AddLimitOrder(postOnly)
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Equal(t, KindPriceCrossing, bookErr.Kind)
}

func TestInvariantBestBidBelowBestAsk(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 99, Buy, 5)))
	require.NoError(t, b.AddLimitOrder(std(2, 101, Sell, 5)))

	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	require.True(t, okBid)
	require.True(t, okAsk)
	assert.Less(t, bid, ask)
}

func TestInvariantNoEmptyLevelsRest(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Buy, 5)))
	require.NoError(t, b.CancelOrder(1))

	assert.Equal(t, 0, len(b.Levels(Buy)))
}

func TestInvariantDuplicateOrderIDRejected(t *testing.T) {
	b := NewOrderBook("X")
	require.NoError(t, b.AddLimitOrder(std(1, 100, Buy, 5)))
	err := b.AddLimitOrder(std(1, 101, Buy, 5))
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Equal(t, KindInvalidOperation, bookErr.Kind)
}

func TestZeroPriceRejected(t *testing.T) {
	b := NewOrderBook("X")
	err := b.AddLimitOrder(std(1, 0, Buy, 5))
	require.Error(t, err)
	var bookErr *Error
	require.ErrorAs(t, err, &bookErr)
	assert.Equal(t, KindInvalidPriceLevel, bookErr.Kind)
}

func TestListenersFireOnTradeAndLevelChange(t *testing.T) {
	b := NewOrderBook("X")
	var trades []TradeResult
	var levelEvents []PriceLevelChangedEvent
	b.SetListeners(
		func(r TradeResult) { trades = append(trades, r) },
		func(e PriceLevelChangedEvent) { levelEvents = append(levelEvents, e) },
	)

	require.NoError(t, b.AddLimitOrder(std(1, 100, Sell, 10)))
	_, err := b.MatchLimitOrder(2, 4, Buy, 100)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "X", trades[0].Symbol)
	assert.NotEmpty(t, levelEvents)
}
