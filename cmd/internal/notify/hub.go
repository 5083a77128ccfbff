package notify

import (
	"log/slog"
	"sync"
)

// Hub fans events out to every connected client. It is safe for concurrent
// use and never blocks the broadcaster: a client whose queue is full is
// disconnected rather than waited on.
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[string]*Client // keyed by Client.ID
	closed  bool
}

// NewHub constructs an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{log: log, clients: make(map[string]*Client)}
}

// Register adds a client to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.Close()
		return
	}
	h.clients[c.ID] = c
}

// Unregister removes a client and signals it to stop.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues ev for every connected client. Clients with a full queue
// are dropped; the broadcaster never blocks.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	var stale []string
	for id, c := range h.clients {
		select {
		case c.Send <- ev:
		default:
			stale = append(stale, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range stale {
		h.log.Warn("notify.client_dropped", "client_id", id, "reason", "send queue full")
		h.Unregister(id)
	}
}

// Close disconnects every client and rejects future registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
}
