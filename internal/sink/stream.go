// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 5 * time.Second
	clientQueueLen = 16
)

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts encoded readings to WebSocket clients. Slow clients drop
// messages instead of blocking the broadcaster.
type Hub struct {
	upgrader    websocket.Upgrader
	messageType int
	log         *logrus.Logger

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

// NewHub creates a hub. Binary hubs send CBOR, text hubs send JSON.
func NewHub(binary bool, log *logrus.Logger) *Hub {
	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		messageType: messageType,
		log:         log,
		clients:     map[*streamClient]struct{}{},
	}
}

// ServeHTTP upgrades the request and registers the client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	c := &streamClient{conn: conn, send: make(chan []byte, clientQueueLen)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.WithField("remote", r.RemoteAddr).Info("Stream client connected")

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop drains the client queue until it is closed
func (h *Hub) writeLoop(c *streamClient) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(h.messageType, data); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readLoop discards client messages and detects disconnects
func (h *Hub) readLoop(c *streamClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.log.Debug("Stream client disconnected")
	}
}

// Broadcast queues data for every client and returns the number of clients
// that accepted it
func (h *Hub) Broadcast(data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			sent++
		default:
			h.log.Debug("Stream client queue full, dropping message")
		}
	}
	return sent
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
