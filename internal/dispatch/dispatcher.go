// Package dispatch drains the bounded command channel and routes each
// command to the correct order book, implementing the dispatch table: add
// book / remove book / submit market order / match-then-rest a limit order /
// cancel / modify. The dispatcher never aborts on an operation error; it
// logs and continues, per the propagation policy.
package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/kestrelmd/matchbook/internal/book"
	"github.com/kestrelmd/matchbook/internal/manager"
)

// Metrics is the narrow observability surface the dispatcher drives; the
// concrete implementation lives in internal/metrics and wraps prometheus
// collectors. A nil Metrics is valid: every call site checks for it.
type Metrics interface {
	ObserveCommand(kind string, outcome string, duration time.Duration)
	ObserveTrade(instrumentID string, quantity uint64, price uint64)
}

// DefaultChannelCapacity is the bounded command channel size used when the
// caller does not specify one; it is the dispatcher's sole backpressure
// mechanism.
const DefaultChannelCapacity = 1024

// Dispatcher owns the command channel and the tomb supervising its single
// processing goroutine, following the teacher's WorkerPool lifecycle idiom
// generalized to a single long-lived worker rather than a pool: per-book
// serialization requires one logical writer, not N.
type Dispatcher struct {
	commands chan Command
	manager  *manager.BookManager
	metrics  Metrics
	t        tomb.Tomb
}

// New constructs a Dispatcher bound to manager m. capacity <= 0 selects
// DefaultChannelCapacity.
func New(m *manager.BookManager, metrics Metrics, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	return &Dispatcher{
		commands: make(chan Command, capacity),
		manager:  m,
		metrics:  metrics,
	}
}

// Commands returns the send side of the bounded command channel; producers
// (bus ingestion) block when it is full.
func (d *Dispatcher) Commands() chan<- Command { return d.commands }

// Start launches the dispatcher loop under the tomb. It drains in-flight
// commands to completion before returning once the channel is closed or the
// tomb is killed.
func (d *Dispatcher) Start() {
	d.t.Go(d.run)
}

// Stop signals the dispatcher to stop accepting new work and waits for the
// in-flight command (if any) to finish.
func (d *Dispatcher) Stop() error {
	close(d.commands)
	return d.t.Wait()
}

// Kill triggers immediate shutdown on a fatal ingestion error; in-flight
// work still completes because run() only checks Dying() between commands.
func (d *Dispatcher) Kill(err error) { d.t.Kill(err) }

func (d *Dispatcher) run() error {
	log.Info().Msg("dispatcher starting")
	for {
		select {
		case <-d.t.Dying():
			log.Info().Msg("dispatcher stopping: tomb dying")
			return nil
		case cmd, ok := <-d.commands:
			if !ok {
				log.Info().Msg("dispatcher stopping: command channel closed")
				return nil
			}
			d.handle(cmd)
		}
	}
}

func (d *Dispatcher) handle(cmd Command) {
	traceID := uuid.New().String()
	start := time.Now()
	kindName, outcome := dispatchTable[cmd.Kind](d, cmd)
	log.Debug().Str("trace_id", traceID).Str("kind", kindName).Str("outcome", outcome).
		Dur("duration", time.Since(start)).Msg("command processed")
	if d.metrics != nil {
		d.metrics.ObserveCommand(kindName, outcome, time.Since(start))
	}
}

// dispatchTable mirrors the distilled command -> operation table: each
// entry returns a label pair (command kind, outcome) used for logging and
// metrics, and performs the operation as a side effect.
var dispatchTable = map[CommandKind]func(*Dispatcher, Command) (string, string){
	CmdInstrumentCreate: (*Dispatcher).handleInstrumentCreate,
	CmdInstrumentDelete: (*Dispatcher).handleInstrumentDelete,
	CmdOrderCreate:      (*Dispatcher).handleOrderCreate,
	CmdOrderCancel:      (*Dispatcher).handleOrderCancel,
	CmdOrderModify:      (*Dispatcher).handleOrderModify,
}

func (d *Dispatcher) handleInstrumentCreate(cmd Command) (string, string) {
	d.manager.AddBook(cmd.InstrumentCreate.InstrumentID)
	log.Debug().Str("instrument", cmd.InstrumentCreate.InstrumentID).Msg("instrument created")
	return "instrument_create", "ok"
}

func (d *Dispatcher) handleInstrumentDelete(cmd Command) (string, string) {
	id := cmd.InstrumentDelete.InstrumentID
	if _, ok := d.manager.GetBook(id); !ok {
		log.Warn().Str("instrument", id).Msg("instrument_delete: unknown instrument, no-op")
		return "instrument_delete", "noop"
	}
	d.manager.RemoveBook(id)
	return "instrument_delete", "ok"
}

func (d *Dispatcher) handleOrderCreate(cmd Command) (string, string) {
	c := cmd.OrderCreate
	b := d.manager.GetOrCreate(c.InstrumentID)

	if c.OrderType == OrderMarket {
		result, err := b.SubmitMarketOrder(c.OrderID, c.Quantity, c.Side)
		if err != nil {
			log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("submit_market_order failed")
			return "order_create_market", "error"
		}
		d.recordTrade(c.InstrumentID, result)
		return "order_create_market", "ok"
	}

	return d.handleLimitOrderCreate(c)
}

// handleLimitOrderCreate implements the aggressive/passive branch: a limit
// order that would cross the book is matched immediately and any unfilled
// remainder rests, subject to its time-in-force's CanRest(); a non-crossing
// limit order goes straight to the book, unless its time-in-force cannot
// rest (IOC/FOK), in which case it is dropped.
func (d *Dispatcher) handleLimitOrderCreate(c OrderCreate) (string, string) {
	b := d.manager.GetOrCreate(c.InstrumentID)

	if !b.WillCrossMarket(c.Price, c.Side) {
		if !c.TimeInForce.CanRest() {
			// IOC/FOK that doesn't even cross has nothing to fill; drop it.
			return "order_create_limit", "dropped"
		}
		order := book.NewStandard(c.OrderID, c.Price, c.Side, nowMs(), c.TimeInForce, c.Quantity)
		if err := b.AddLimitOrder(order); err != nil {
			log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("add_limit_order failed")
			return "order_create_limit", "error"
		}
		return "order_create_limit", "ok"
	}

	if c.TimeInForce.Kind == book.FOK {
		available := b.PeekMatch(c.Side, c.Quantity, &c.Price)
		if available < c.Quantity {
			log.Debug().Uint64("order_id", c.OrderID).Msg("fill_or_kill: insufficient liquidity, dropped")
			return "order_create_limit", "dropped"
		}
	}

	result, err := b.MatchLimitOrder(c.OrderID, c.Quantity, c.Side, c.Price)
	if err != nil {
		log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("match_limit_order failed")
		return "order_create_limit", "error"
	}
	d.recordTrade(c.InstrumentID, result)

	if result.RemainingQuantity > 0 && c.TimeInForce.CanRest() {
		remainder := book.NewStandard(c.OrderID, c.Price, c.Side, nowMs(), c.TimeInForce, result.RemainingQuantity)
		if err := b.AddLimitOrder(remainder); err != nil {
			log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("rest remainder failed")
			return "order_create_limit", "error"
		}
	}
	return "order_create_limit", "ok"
}

func (d *Dispatcher) handleOrderCancel(cmd Command) (string, string) {
	c := cmd.OrderCancel
	b, ok := d.manager.GetBook(c.InstrumentID)
	if !ok {
		log.Warn().Str("instrument", c.InstrumentID).Msg("order_cancel: unknown instrument, no-op")
		return "order_cancel", "noop"
	}
	if err := b.CancelOrder(c.OrderID); err != nil {
		log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("cancel_order failed")
		return "order_cancel", "error"
	}
	return "order_cancel", "ok"
}

func (d *Dispatcher) handleOrderModify(cmd Command) (string, string) {
	c := cmd.OrderModify
	b, ok := d.manager.GetBook(c.InstrumentID)
	if !ok {
		log.Warn().Str("instrument", c.InstrumentID).Msg("order_modify: unknown instrument, no-op")
		return "order_modify", "noop"
	}
	err := b.UpdateOrder(book.OrderUpdate{OrderID: c.OrderID, NewPrice: c.Price, NewQuantity: c.Quantity})
	if err != nil {
		log.Error().Err(err).Uint64("order_id", c.OrderID).Msg("update_order failed")
		return "order_modify", "error"
	}
	return "order_modify", "ok"
}

func (d *Dispatcher) recordTrade(instrumentID string, result book.MatchResult) {
	if len(result.Transactions) == 0 {
		return
	}
	if d.metrics == nil {
		return
	}
	for _, txn := range result.Transactions {
		d.metrics.ObserveTrade(instrumentID, txn.Quantity, txn.Price)
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
