package ws

import (
	"sync"

	"github.com/monument-wall/wall-service/internal/metrics"
)

type Conn interface {
	Send(msg Message) error
	Close() error
	Address() string
}

// Hub is the flat set of wall viewers. There is one wall, so there are
// no rooms, only connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
	metrics.ViewerConnections.Set(float64(len(h.conns)))
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
	metrics.ViewerConnections.Set(float64(len(h.conns)))
}

func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		_ = c.Send(msg) // best-effort
	}
}

// ForEach visits every connection; used for per-viewer fan-out where the
// payload depends on the viewer's page state.
func (h *Hub) ForEach(fn func(c Conn)) {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		fn(c)
	}
}
