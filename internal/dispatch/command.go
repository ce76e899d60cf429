package dispatch

import "github.com/kestrelmd/matchbook/internal/book"

// OrderKind distinguishes the two command-channel order entry shapes. It is
// deliberately narrower than book.Kind: the bus only ever produces Market or
// Limit orders, and the dispatcher enters every limit order as a
// book.Standard. The richer variants (Iceberg, Reserve, ...) are not part of
// the wire contract and the dispatcher never builds them.
type OrderKind int

const (
	OrderMarket OrderKind = iota
	OrderLimit
)

// Command is the tagged union of everything the dispatcher accepts off the
// bounded command channel. Exactly one of the typed payload fields is
// meaningful per Kind.
type Command struct {
	Kind CommandKind

	InstrumentCreate InstrumentCreate
	InstrumentDelete InstrumentDelete
	OrderCreate      OrderCreate
	OrderCancel      OrderCancel
	OrderModify      OrderModify
}

type CommandKind int

const (
	CmdInstrumentCreate CommandKind = iota
	CmdInstrumentDelete
	CmdOrderCreate
	CmdOrderCancel
	CmdOrderModify
)

// InstrumentCreate registers a new instrument's book. Descriptive fields
// beyond the id are accepted by producers but ignored by the core.
type InstrumentCreate struct {
	InstrumentID string
}

// InstrumentDelete removes an instrument's book. Idempotent: deleting an
// unknown instrument is a warn-and-no-op, not an error.
type InstrumentDelete struct {
	InstrumentID string
}

// OrderCreate submits a new order. Price is ignored for Market orders.
type OrderCreate struct {
	OrderID      uint64
	InstrumentID string
	Quantity     uint64
	Price        uint64
	Side         book.Side
	TimeInForce  book.TimeInForce
	OrderType    OrderKind
}

// OrderCancel withdraws a live order.
type OrderCancel struct {
	OrderID      uint64
	InstrumentID string
}

// OrderModify replaces price and quantity on a live order, losing time
// priority at its new price. See book.UpdateOrder for the full contract.
type OrderModify struct {
	InstrumentID string
	OrderID      uint64
	Price        uint64
	Quantity     uint64
}
