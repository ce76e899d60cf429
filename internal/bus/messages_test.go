package bus

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmd/matchbook/internal/book"
	"github.com/kestrelmd/matchbook/internal/dispatch"
)

func putInstrumentID(b []byte, id string) {
	copy(b, id)
}

func TestDecodeTooShort(t *testing.T) {
	_, err := Decode([]byte{0})
	require.ErrorIs(t, err, ErrMessageTooShort)
}

func TestDecodeInvalidType(t *testing.T) {
	msg := make([]byte, envelopeHeaderLen)
	binary.BigEndian.PutUint16(msg[0:2], 99)
	_, err := Decode(msg)
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestDecodeInstrumentCreate(t *testing.T) {
	msg := make([]byte, envelopeHeaderLen+instrumentIDLen)
	binary.BigEndian.PutUint16(msg[0:2], uint16(MsgInstrumentCreate))
	putInstrumentID(msg[envelopeHeaderLen:], "BTC-USD")

	cmd, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, dispatch.CmdInstrumentCreate, cmd.Kind)
	assert.Equal(t, "BTC-USD", cmd.InstrumentCreate.InstrumentID)
}

func TestDecodeInstrumentDelete(t *testing.T) {
	msg := make([]byte, envelopeHeaderLen+instrumentIDLen)
	binary.BigEndian.PutUint16(msg[0:2], uint16(MsgInstrumentDelete))
	putInstrumentID(msg[envelopeHeaderLen:], "BTC-USD")

	cmd, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, dispatch.CmdInstrumentDelete, cmd.Kind)
	assert.Equal(t, "BTC-USD", cmd.InstrumentDelete.InstrumentID)
}

func buildOrderCreateMsg(side byte, tif byte, kind byte) []byte {
	msg := make([]byte, envelopeHeaderLen+orderCreateLen)
	binary.BigEndian.PutUint16(msg[0:2], uint16(MsgOrderCreate))
	off := envelopeHeaderLen
	binary.BigEndian.PutUint64(msg[off:off+8], 42)
	off += 8
	putInstrumentID(msg[off:off+instrumentIDLen], "X")
	off += instrumentIDLen
	binary.BigEndian.PutUint64(msg[off:off+8], 10)
	off += 8
	binary.BigEndian.PutUint64(msg[off:off+8], 100)
	off += 8
	msg[off] = side
	off++
	msg[off] = tif
	off++
	binary.BigEndian.PutUint64(msg[off:off+8], 0)
	off += 8
	msg[off] = kind
	return msg
}

func TestDecodeOrderCreate(t *testing.T) {
	msg := buildOrderCreateMsg(0, byte(book.GTC), byte(dispatch.OrderLimit))
	cmd, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, dispatch.CmdOrderCreate, cmd.Kind)
	assert.Equal(t, uint64(42), cmd.OrderCreate.OrderID)
	assert.Equal(t, "X", cmd.OrderCreate.InstrumentID)
	assert.Equal(t, uint64(10), cmd.OrderCreate.Quantity)
	assert.Equal(t, uint64(100), cmd.OrderCreate.Price)
	assert.Equal(t, book.Buy, cmd.OrderCreate.Side)
	assert.Equal(t, book.GTC, cmd.OrderCreate.TimeInForce.Kind)
	assert.Equal(t, dispatch.OrderLimit, cmd.OrderCreate.OrderType)
}

func TestDecodeOrderCreateInvalidSide(t *testing.T) {
	msg := buildOrderCreateMsg(9, byte(book.GTC), byte(dispatch.OrderLimit))
	_, err := Decode(msg)
	require.ErrorIs(t, err, ErrInvalidSide)
}

func TestDecodeOrderCreateInvalidTIF(t *testing.T) {
	msg := buildOrderCreateMsg(0, 99, byte(dispatch.OrderLimit))
	_, err := Decode(msg)
	require.ErrorIs(t, err, ErrInvalidTIF)
}

func TestDecodeOrderCreateInvalidOrderKind(t *testing.T) {
	msg := buildOrderCreateMsg(0, byte(book.GTC), 99)
	_, err := Decode(msg)
	require.ErrorIs(t, err, ErrInvalidOrderKind)
}

func TestDecodeOrderCreateTooShort(t *testing.T) {
	msg := buildOrderCreateMsg(0, byte(book.GTC), byte(dispatch.OrderLimit))
	_, err := Decode(msg[:len(msg)-4])
	require.ErrorIs(t, err, ErrMessageTooShort)
}

func TestDecodeOrderCancel(t *testing.T) {
	msg := make([]byte, envelopeHeaderLen+orderCancelLen)
	binary.BigEndian.PutUint16(msg[0:2], uint16(MsgOrderCancel))
	off := envelopeHeaderLen
	binary.BigEndian.PutUint64(msg[off:off+8], 7)
	off += 8
	putInstrumentID(msg[off:off+instrumentIDLen], "X")

	cmd, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, dispatch.CmdOrderCancel, cmd.Kind)
	assert.Equal(t, uint64(7), cmd.OrderCancel.OrderID)
	assert.Equal(t, "X", cmd.OrderCancel.InstrumentID)
}

func TestDecodeOrderModify(t *testing.T) {
	msg := make([]byte, envelopeHeaderLen+orderModifyLen)
	binary.BigEndian.PutUint16(msg[0:2], uint16(MsgOrderModify))
	off := envelopeHeaderLen
	putInstrumentID(msg[off:off+instrumentIDLen], "X")
	off += instrumentIDLen
	binary.BigEndian.PutUint64(msg[off:off+8], 7)
	off += 8
	binary.BigEndian.PutUint64(msg[off:off+8], 101)
	off += 8
	binary.BigEndian.PutUint64(msg[off:off+8], 3)

	cmd, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, dispatch.CmdOrderModify, cmd.Kind)
	assert.Equal(t, uint64(7), cmd.OrderModify.OrderID)
	assert.Equal(t, uint64(101), cmd.OrderModify.Price)
	assert.Equal(t, uint64(3), cmd.OrderModify.Quantity)
}
