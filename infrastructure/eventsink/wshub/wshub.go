// Package wshub broadcasts coordinator event summaries to connected
// websocket clients, implementing internal/adapters.EventSink. No teacher
// file exercises gorilla/websocket directly (it is only listed in go.mod),
// so the hub pattern is built from the library's idiomatic register/
// unregister/broadcast loop.
package wshub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/barterloop/matchingengine/infrastructure/logging"
	"github.com/barterloop/matchingengine/internal/adapters"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans a single PublishSummary call out to every connected websocket
// client. It satisfies adapters.EventSink.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *logging.Logger
}

// New builds an empty Hub.
func New(log *logging.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection until it disconnects. Mount this under e.g. /ws/{tenant}.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.WithComponent().WithError(err).Warn("websocket upgrade failed")
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards inbound frames but detects disconnects via read errors,
// the standard gorilla/websocket idiom for a send-only hub.
func (h *Hub) readPump(c *client) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// PublishSummary broadcasts summary to every connected client. Clients whose
// send buffer is full are dropped rather than allowed to block the sender.
func (h *Hub) PublishSummary(ctx context.Context, summary adapters.EventSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// ClientCount returns the number of currently connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

var _ adapters.EventSink = (*Hub)(nil)
