package server

import "sync"

// Hub tracks the live connection for each client id. A reconnect replaces
// the previous connection.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Conn)}
}

// Register makes c the current connection for its client and returns the
// connection it replaced, if any.
func (h *Hub) Register(c *Conn) *Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.conns[c.clientID]
	h.conns[c.clientID] = c
	return old
}

// Unregister removes c if it is still the current connection for its
// client and reports whether it was.
func (h *Hub) Unregister(c *Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c.clientID] != c {
		return false
	}
	delete(h.conns, c.clientID)
	return true
}

// Get returns the current connection for clientID.
func (h *Hub) Get(clientID string) (*Conn, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[clientID]
	return c, ok
}

// Len returns the number of live connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll closes every live connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
