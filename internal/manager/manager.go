// Package manager owns the collection of live order books, keyed by
// instrument id, and wires each newly created book to the shared listeners
// used by the feed layer.
package manager

import (
	"sync"

	"github.com/kestrelmd/matchbook/internal/book"
)

// BookManager is the registry of per-instrument order books. Add/Remove are
// idempotent: adding an instrument that already exists, or removing one that
// doesn't, is a no-op rather than an error, matching the dispatcher's
// implicit-creation semantics for OrderCreate against an unknown instrument.
type BookManager struct {
	mu     sync.RWMutex
	books  map[string]*book.OrderBook

	tradeListener book.TradeListener
	levelListener book.PriceLevelChangedListener
}

func New() *BookManager {
	return &BookManager{books: make(map[string]*book.OrderBook)}
}

// SetListeners installs the listeners every book created from this point
// forward (and every book already present) will broadcast through.
func (m *BookManager) SetListeners(trade book.TradeListener, level book.PriceLevelChangedListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tradeListener = trade
	m.levelListener = level
	for _, b := range m.books {
		b.SetListeners(trade, level)
	}
}

// AddBook creates and registers a new book for instrumentID if one does not
// already exist, returning the (possibly pre-existing) book either way.
func (m *BookManager) AddBook(instrumentID string) *book.OrderBook {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[instrumentID]; ok {
		return b
	}
	b := book.NewOrderBook(instrumentID)
	b.SetListeners(m.tradeListener, m.levelListener)
	m.books[instrumentID] = b
	return b
}

// RemoveBook deletes instrumentID's book, if any. Idempotent.
func (m *BookManager) RemoveBook(instrumentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, instrumentID)
}

// GetBook returns the book for instrumentID, if it exists.
func (m *BookManager) GetBook(instrumentID string) (*book.OrderBook, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[instrumentID]
	return b, ok
}

// GetOrCreate returns instrumentID's book, creating it if absent. This is
// the entry point OrderCreate commands use for implicit book creation.
func (m *BookManager) GetOrCreate(instrumentID string) *book.OrderBook {
	if b, ok := m.GetBook(instrumentID); ok {
		return b
	}
	return m.AddBook(instrumentID)
}

// ListInstruments returns the ids of all currently registered books, in no
// particular order.
func (m *BookManager) ListInstruments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.books))
	for id := range m.books {
		ids = append(ids, id)
	}
	return ids
}
