// Package feed fans out trade and price-level-change events to subscribed
// websocket clients. It is registered as the engine's TradeListener and
// PriceLevelChangedListener and must never block the dispatcher: each
// client gets a small bounded send queue, and a client that falls behind is
// dropped rather than allowed to stall the broadcast.
package feed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kestrelmd/matchbook/internal/book"
)

const clientSendQueueSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// envelope tags an outbound message so a single websocket stream can carry
// both trade and level-change events.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan envelope
}

// Hub tracks connected subscribers and serializes broadcast writes per
// client through each client's own goroutine, following the teacher's
// client-session map + mutex idiom (internal/net/server.go), adapted from a
// raw TCP session map to a websocket client registry.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the connection and registers it as a subscriber until
// it disconnects or is dropped for falling behind.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("feed: websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan envelope, clientSendQueueSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// readPump only exists to detect client disconnects (the feed is one-way);
// any inbound data is discarded.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Error().Err(err).Msg("feed: failed to marshal event")
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(msg envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop it rather than block the broadcaster.
			log.Warn().Msg("feed: client send queue full, dropping client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// OnTrade implements book.TradeListener.
func (h *Hub) OnTrade(result book.TradeResult) {
	h.broadcast(envelope{Type: "trade", Data: result})
}

// OnPriceLevelChanged implements book.PriceLevelChangedListener.
func (h *Hub) OnPriceLevelChanged(event book.PriceLevelChangedEvent) {
	h.broadcast(envelope{Type: "price_level_changed", Data: event})
}
