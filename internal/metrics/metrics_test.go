package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/matchbook/internal/book"
	"github.com/kestrelmd/matchbook/internal/manager"
)

func TestObserveCommandAndTrade(t *testing.T) {
	r := NewRegistry()
	r.ObserveCommand("order_create_limit", "ok", 2*time.Millisecond)
	r.ObserveTrade("X", 10, 100)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.commandsTotal.WithLabelValues("order_create_limit", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.tradesTotal.WithLabelValues("X")))
	assert.Equal(t, float64(1000), testutil.ToFloat64(r.tradeNotional.WithLabelValues("X")))
}

func TestSampleBookDepth(t *testing.T) {
	r := NewRegistry()
	m := manager.New()
	b := m.AddBook("X")
	require.NoError(t, b.AddLimitOrder(book.NewStandard(1, 100, book.Buy, 1, book.TimeInForce{Kind: book.GTC}, 10)))
	require.NoError(t, b.AddLimitOrder(book.NewStandard(2, 101, book.Sell, 2, book.TimeInForce{Kind: book.GTC}, 10)))

	r.SampleBookDepth(m)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.activeOrderGauge.WithLabelValues("X")))
	assert.Equal(t, float64(100), testutil.ToFloat64(r.bestBidGauge.WithLabelValues("X")))
	assert.Equal(t, float64(101), testutil.ToFloat64(r.bestAskGauge.WithLabelValues("X")))
}
