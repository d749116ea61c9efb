// Package relay fans published payloads out to websocket clients and NATS
// subscribers, and serves the HTTP routes of both binaries.
package relay

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultWriteTimeout = 10 * time.Second

// HubMetrics receives the connected client count. A nil HubMetrics is
// allowed.
type HubMetrics interface {
	ClientsConnected(n int)
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(payload []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub is an http.Handler that upgrades requests to websockets and broadcasts
// every published payload as a text message. Client messages are read and
// discarded.
type Hub struct {
	name         string
	upgrader     websocket.Upgrader
	initial      func() []byte
	metrics      HubMetrics
	writeTimeout time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns a hub. initial, when non-nil, supplies the payload a new
// client receives right after connecting; a nil payload sends nothing.
func NewHub(name string, initial func() []byte, m HubMetrics) *Hub {
	return &Hub{
		name: name,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		initial:      initial,
		metrics:      m,
		writeTimeout: defaultWriteTimeout,
		clients:      make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("%s ws upgrade error: %v", h.name, err)
		return
	}
	c := &client{conn: conn}

	// Hold the client's write lock until the initial payload is out so a
	// concurrent broadcast cannot overtake it.
	c.mu.Lock()
	h.add(c)
	if h.initial != nil {
		if payload := h.initial(); payload != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("%s ws initial write error: %v", h.name, err)
			}
		}
	}
	c.mu.Unlock()

	go h.readPump(c)
}

// Publish sends payload to every connected client. Clients whose write fails
// are dropped.
func (h *Hub) Publish(payload []byte) error {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(payload, h.writeTimeout); err != nil {
			log.Printf("%s ws write error: %v", h.name, err)
			h.remove(c)
		}
	}
	return nil
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.report(0)
	h.mu.Unlock()
	for c := range clients {
		_ = c.conn.Close()
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.report(len(h.clients))
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		h.report(len(h.clients))
	}
	h.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// report is called with mu held.
func (h *Hub) report(n int) {
	if h.metrics != nil {
		h.metrics.ClientsConnected(n)
	}
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
