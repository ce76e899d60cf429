package analytics

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"

	"github.com/kestrelmd/matchbook/internal/book"
)

// SnapshotFormatVersion is the constant written into every snapshot record;
// Decode rejects a record whose version it does not recognize.
const SnapshotFormatVersion uint32 = 1

// OrderRecord is one resting order's externally visible state inside a
// snapshot.
type OrderRecord struct {
	OrderID  uint64 `json:"order_id"`
	Price    uint64 `json:"price"`
	Visible  uint64 `json:"visible_quantity"`
	Hidden   uint64 `json:"hidden_quantity"`
	Side     string `json:"side"`
	Kind     int    `json:"kind"`
	Sequence int    `json:"sequence"`
}

// LevelRecord is one price level's aggregate state plus its constituent
// orders, in FIFO order.
type LevelRecord struct {
	Price           uint64        `json:"price"`
	VisibleQuantity uint64        `json:"visible_quantity"`
	HiddenQuantity  uint64        `json:"hidden_quantity"`
	OrderCount      int           `json:"order_count"`
	Orders          []OrderRecord `json:"orders"`
}

// Snapshot is the versioned, self-describing record of one book's full
// resting state. SnapshotID is a synthetic correlation id, not part of the
// book's own state, used to tie a snapshot to the log line that produced it.
type Snapshot struct {
	FormatVersion uint32        `json:"format_version"`
	SnapshotID    string        `json:"snapshot_id"`
	InstrumentID  string        `json:"instrument_id"`
	Bids          []LevelRecord `json:"bids"`
	Asks          []LevelRecord `json:"asks"`
}

// Take captures b's current resting state into a Snapshot. Read-only.
func Take(b *book.OrderBook) Snapshot {
	return Snapshot{
		FormatVersion: SnapshotFormatVersion,
		SnapshotID:    uuid.New().String(),
		InstrumentID:  b.InstrumentID(),
		Bids:          levelRecords(b.Levels(book.Buy)),
		Asks:          levelRecords(b.Levels(book.Sell)),
	}
}

func levelRecords(levels []*book.PriceLevel) []LevelRecord {
	records := make([]LevelRecord, 0, len(levels))
	for _, level := range levels {
		orders := level.Orders()
		orderRecords := make([]OrderRecord, 0, len(orders))
		for i, o := range orders {
			orderRecords = append(orderRecords, OrderRecord{
				OrderID:  o.ID(),
				Price:    o.Price(),
				Visible:  o.VisibleQuantity(),
				Hidden:   o.HiddenQuantity(),
				Side:     o.Side().String(),
				Kind:     int(o.Kind()),
				Sequence: i,
			})
		}
		records = append(records, LevelRecord{
			Price:           level.Price(),
			VisibleQuantity: level.VisibleQuantity(),
			HiddenQuantity:  level.HiddenQuantity(),
			OrderCount:      level.OrderCount(),
			Orders:          orderRecords,
		})
	}
	return records
}

// Encode serializes s to its canonical byte form: a JSON body prefixed by a
// length header and trailed by a CRC32 checksum of the body, so corruption
// anywhere in the body is detected on Decode.
func Encode(s Snapshot) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, &book.Error{Kind: book.KindSerializationError, Message: err.Error()}
	}
	checksum := crc32.ChecksumIEEE(body)

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, uint32(len(body))); err != nil {
		return nil, &book.Error{Kind: book.KindSerializationError, Message: err.Error()}
	}
	buf.Write(body)
	if err := binary.Write(buf, binary.BigEndian, checksum); err != nil {
		return nil, &book.Error{Kind: book.KindSerializationError, Message: err.Error()}
	}
	return buf.Bytes(), nil
}

// Decode parses a byte form produced by Encode, verifying its checksum
// before unmarshaling the body.
func Decode(data []byte) (Snapshot, error) {
	if len(data) < 8 {
		return Snapshot{}, &book.Error{Kind: book.KindDeserializationError, Message: "snapshot too short"}
	}
	bodyLen := binary.BigEndian.Uint32(data[:4])
	if uint64(len(data)) < uint64(4+bodyLen+4) {
		return Snapshot{}, &book.Error{Kind: book.KindDeserializationError, Message: "snapshot truncated"}
	}
	body := data[4 : 4+bodyLen]
	expected := binary.BigEndian.Uint32(data[4+bodyLen : 4+bodyLen+4])
	actual := crc32.ChecksumIEEE(body)
	if expected != actual {
		return Snapshot{}, &book.Error{
			Kind:     book.KindChecksumMismatch,
			Expected: fmt.Sprintf("%08x", expected),
			Actual:   fmt.Sprintf("%08x", actual),
		}
	}

	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return Snapshot{}, &book.Error{Kind: book.KindDeserializationError, Message: err.Error()}
	}
	if s.FormatVersion != SnapshotFormatVersion {
		return Snapshot{}, &book.Error{
			Kind:    book.KindDeserializationError,
			Message: fmt.Sprintf("unsupported snapshot format_version %d", s.FormatVersion),
		}
	}
	return s, nil
}
