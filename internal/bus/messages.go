// Package bus decodes inbound command-channel payloads off an external
// transport and forwards them to the dispatcher. The wire format is a
// length-prefixed, big-endian binary encoding in the teacher's
// internal/net/messages.go style; topic subscription and the transport
// itself are left to a Source implementation supplied by the host process.
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/kestrelmd/matchbook/internal/book"
	"github.com/kestrelmd/matchbook/internal/dispatch"
)

var (
	ErrMessageTooShort = errors.New("bus: message too short for declared type")
	ErrInvalidType      = errors.New("bus: invalid message type")
	ErrInvalidSide      = errors.New("bus: invalid side byte")
	ErrInvalidTIF       = errors.New("bus: invalid time_in_force byte")
	ErrInvalidOrderKind = errors.New("bus: invalid order_type byte")
)

// MessageType tags the binary envelope's payload shape, mirroring the
// command channel's five payload kinds.
type MessageType uint16

const (
	MsgInstrumentCreate MessageType = iota
	MsgInstrumentDelete
	MsgOrderCreate
	MsgOrderCancel
	MsgOrderModify
)

const envelopeHeaderLen = 2 // MessageType

// Decode parses one length-delimited message (the transport, e.g. a framed
// TCP or message-bus record, is responsible for delivering exactly one
// message's bytes per call) into a dispatch.Command.
func Decode(msg []byte) (dispatch.Command, error) {
	if len(msg) < envelopeHeaderLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[envelopeHeaderLen:]

	switch typeOf {
	case MsgInstrumentCreate:
		return decodeInstrumentCreate(body)
	case MsgInstrumentDelete:
		return decodeInstrumentDelete(body)
	case MsgOrderCreate:
		return decodeOrderCreate(body)
	case MsgOrderCancel:
		return decodeOrderCancel(body)
	case MsgOrderModify:
		return decodeOrderModify(body)
	default:
		return dispatch.Command{}, fmt.Errorf("%w: %d", ErrInvalidType, typeOf)
	}
}

// instrumentIDLen is the fixed width reserved for an instrument id on the
// wire; producers pad or truncate to fit.
const instrumentIDLen = 16

func readInstrumentID(b []byte) string {
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[:end])
}

func decodeInstrumentCreate(b []byte) (dispatch.Command, error) {
	if len(b) < instrumentIDLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	return dispatch.Command{
		Kind:             dispatch.CmdInstrumentCreate,
		InstrumentCreate: dispatch.InstrumentCreate{InstrumentID: readInstrumentID(b[:instrumentIDLen])},
	}, nil
}

func decodeInstrumentDelete(b []byte) (dispatch.Command, error) {
	if len(b) < instrumentIDLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	return dispatch.Command{
		Kind:             dispatch.CmdInstrumentDelete,
		InstrumentDelete: dispatch.InstrumentDelete{InstrumentID: readInstrumentID(b[:instrumentIDLen])},
	}, nil
}

// orderCreateLen: order_id(8) + instrument_id(16) + quantity(8) + price(8) +
// side(1) + tif_kind(1) + expiry_ms(8) + order_kind(1)
const orderCreateLen = 8 + instrumentIDLen + 8 + 8 + 1 + 1 + 8 + 1

func decodeOrderCreate(b []byte) (dispatch.Command, error) {
	if len(b) < orderCreateLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	off := 0
	orderID := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	instrumentID := readInstrumentID(b[off : off+instrumentIDLen])
	off += instrumentIDLen
	quantity := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	price := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	side, err := decodeSide(b[off])
	if err != nil {
		return dispatch.Command{}, err
	}
	off++
	tifKind, err := decodeTIFKind(b[off])
	if err != nil {
		return dispatch.Command{}, err
	}
	off++
	expiryMs := int64(binary.BigEndian.Uint64(b[off : off+8]))
	off += 8
	orderKind, err := decodeOrderKind(b[off])
	if err != nil {
		return dispatch.Command{}, err
	}

	return dispatch.Command{
		Kind: dispatch.CmdOrderCreate,
		OrderCreate: dispatch.OrderCreate{
			OrderID:      orderID,
			InstrumentID: instrumentID,
			Quantity:     quantity,
			Price:        price,
			Side:         side,
			TimeInForce:  book.TimeInForce{Kind: tifKind, ExpiryMs: expiryMs},
			OrderType:    orderKind,
		},
	}, nil
}

// orderCancelLen: order_id(8) + instrument_id(16)
const orderCancelLen = 8 + instrumentIDLen

func decodeOrderCancel(b []byte) (dispatch.Command, error) {
	if len(b) < orderCancelLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	orderID := binary.BigEndian.Uint64(b[0:8])
	instrumentID := readInstrumentID(b[8 : 8+instrumentIDLen])
	return dispatch.Command{
		Kind:        dispatch.CmdOrderCancel,
		OrderCancel: dispatch.OrderCancel{OrderID: orderID, InstrumentID: instrumentID},
	}, nil
}

// orderModifyLen: instrument_id(16) + order_id(8) + price(8) + quantity(8)
const orderModifyLen = instrumentIDLen + 8 + 8 + 8

func decodeOrderModify(b []byte) (dispatch.Command, error) {
	if len(b) < orderModifyLen {
		return dispatch.Command{}, ErrMessageTooShort
	}
	off := 0
	instrumentID := readInstrumentID(b[off : off+instrumentIDLen])
	off += instrumentIDLen
	orderID := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	price := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	quantity := binary.BigEndian.Uint64(b[off : off+8])

	return dispatch.Command{
		Kind: dispatch.CmdOrderModify,
		OrderModify: dispatch.OrderModify{
			InstrumentID: instrumentID,
			OrderID:      orderID,
			Price:        price,
			Quantity:     quantity,
		},
	}, nil
}

func decodeSide(b byte) (book.Side, error) {
	switch b {
	case 0:
		return book.Buy, nil
	case 1:
		return book.Sell, nil
	default:
		return 0, ErrInvalidSide
	}
}

func decodeTIFKind(b byte) (book.TIFKind, error) {
	switch book.TIFKind(b) {
	case book.GTC, book.IOC, book.FOK, book.GTD, book.DAY:
		return book.TIFKind(b), nil
	default:
		return 0, ErrInvalidTIF
	}
}

func decodeOrderKind(b byte) (dispatch.OrderKind, error) {
	switch dispatch.OrderKind(b) {
	case dispatch.OrderMarket, dispatch.OrderLimit:
		return dispatch.OrderKind(b), nil
	default:
		return 0, ErrInvalidOrderKind
	}
}
