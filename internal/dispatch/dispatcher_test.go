package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/matchbook/internal/book"
	"github.com/kestrelmd/matchbook/internal/manager"
)

func gtc() book.TimeInForce { return book.TimeInForce{Kind: book.GTC} }

func newTestDispatcher(t *testing.T) (*Dispatcher, *manager.BookManager) {
	t.Helper()
	m := manager.New()
	d := New(m, nil, 16)
	d.Start()
	t.Cleanup(func() {
		_ = d.Stop()
	})
	return d, m
}

func sendAndDrain(t *testing.T, d *Dispatcher, cmd Command) {
	t.Helper()
	d.Commands() <- cmd
	// Give the single-goroutine dispatcher a moment to process; the test
	// suite is small enough that a short sleep is simpler than threading a
	// synchronization channel through every command type.
	time.Sleep(20 * time.Millisecond)
}

func TestDispatchImplicitBookCreationOnOrderCreate(t *testing.T) {
	d, m := newTestDispatcher(t)

	sendAndDrain(t, d, Command{
		Kind: CmdOrderCreate,
		OrderCreate: OrderCreate{
			OrderID: 1, InstrumentID: "X", Quantity: 10, Price: 100,
			Side: book.Buy, TimeInForce: gtc(), OrderType: OrderLimit,
		},
	})

	b, ok := m.GetBook("X")
	require.True(t, ok)
	assert.Equal(t, 1, b.OrderCount())
}

func TestDispatchInstrumentDeleteUnknownIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sendAndDrain(t, d, Command{Kind: CmdInstrumentDelete, InstrumentDelete: InstrumentDelete{InstrumentID: "GHOST"}})
	// No panic, no crash: success is simply that the dispatcher kept running.
	sendAndDrain(t, d, Command{Kind: CmdInstrumentCreate, InstrumentCreate: InstrumentCreate{InstrumentID: "X"}})
}

func TestDispatchAggressiveLimitOrderMatchesAndRests(t *testing.T) {
	d, m := newTestDispatcher(t)

	sendAndDrain(t, d, Command{Kind: CmdInstrumentCreate, InstrumentCreate: InstrumentCreate{InstrumentID: "X"}})
	sendAndDrain(t, d, Command{Kind: CmdOrderCreate, OrderCreate: OrderCreate{
		OrderID: 1, InstrumentID: "X", Quantity: 10, Price: 100, Side: book.Sell, TimeInForce: gtc(), OrderType: OrderLimit,
	}})
	sendAndDrain(t, d, Command{Kind: CmdOrderCreate, OrderCreate: OrderCreate{
		OrderID: 2, InstrumentID: "X", Quantity: 15, Price: 100, Side: book.Buy, TimeInForce: gtc(), OrderType: OrderLimit,
	}})

	b, ok := m.GetBook("X")
	require.True(t, ok)
	assert.Equal(t, 1, b.OrderCount())
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(100), bid)
}

func TestDispatchIOCDropsUnfilledRemainder(t *testing.T) {
	d, m := newTestDispatcher(t)

	sendAndDrain(t, d, Command{Kind: CmdInstrumentCreate, InstrumentCreate: InstrumentCreate{InstrumentID: "X"}})
	sendAndDrain(t, d, Command{Kind: CmdOrderCreate, OrderCreate: OrderCreate{
		OrderID: 1, InstrumentID: "X", Quantity: 5, Price: 100, Side: book.Sell, TimeInForce: gtc(), OrderType: OrderLimit,
	}})
	sendAndDrain(t, d, Command{Kind: CmdOrderCreate, OrderCreate: OrderCreate{
		OrderID: 2, InstrumentID: "X", Quantity: 10, Price: 100, Side: book.Buy,
		TimeInForce: book.TimeInForce{Kind: book.IOC}, OrderType: OrderLimit,
	}})

	b, ok := m.GetBook("X")
	require.True(t, ok)
	assert.Equal(t, 0, b.OrderCount())
}

func TestDispatchCancelAndModify(t *testing.T) {
	d, m := newTestDispatcher(t)

	sendAndDrain(t, d, Command{Kind: CmdInstrumentCreate, InstrumentCreate: InstrumentCreate{InstrumentID: "X"}})
	sendAndDrain(t, d, Command{Kind: CmdOrderCreate, OrderCreate: OrderCreate{
		OrderID: 1, InstrumentID: "X", Quantity: 5, Price: 100, Side: book.Buy, TimeInForce: gtc(), OrderType: OrderLimit,
	}})
	sendAndDrain(t, d, Command{Kind: CmdOrderModify, OrderModify: OrderModify{InstrumentID: "X", OrderID: 1, Price: 99, Quantity: 7}})

	b, ok := m.GetBook("X")
	require.True(t, ok)
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(99), bid)

	sendAndDrain(t, d, Command{Kind: CmdOrderCancel, OrderCancel: OrderCancel{InstrumentID: "X", OrderID: 1}})
	assert.Equal(t, 0, b.OrderCount())
}
