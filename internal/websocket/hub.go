package websocket

import (
	"sync"

	"github.com/mgulec/taskroom/internal/metrics"
	"github.com/mgulec/taskroom/internal/protocol"
	"github.com/mgulec/taskroom/pkg/logger"
)

// Hub tracks all live connections. Task-list snapshots fan out through here
// because every attached client renders the same shared list; chat snapshots
// bypass the hub and flow through each connection's own room subscription.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Connection]bool
	Register   chan *Connection
	Unregister chan *Connection
	Broadcast  chan protocol.Event

	metrics *metrics.Metrics
	logg    logger.Logger
}

func NewHub(m *metrics.Metrics, logg logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Connection]bool),
		Register:   make(chan *Connection),
		Unregister: make(chan *Connection),
		Broadcast:  make(chan protocol.Event, 64),
		metrics:    m,
		logg:       logg,
	}
}

// Run starts the Hub's main loop for handling connections and broadcasts.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.Register:
			h.addClient(conn)
		case conn := <-h.Unregister:
			h.removeClient(conn)
		case ev := <-h.Broadcast:
			h.broadcastEvent(ev)
		}
	}
}

// Close shuts down the Hub, closing all connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.CloseSend()
		conn.Ws.Close()
		delete(h.clients, conn)
	}
	h.metrics.ActiveConnections.Set(0)
}

func (h *Hub) addClient(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.metrics.ActiveConnections.Inc()
}

func (h *Hub) removeClient(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClientLocked(conn)
}

func (h *Hub) removeClientLocked(conn *Connection) {
	if _, exists := h.clients[conn]; exists {
		delete(h.clients, conn)
		conn.CloseSend()
		h.metrics.ActiveConnections.Dec()
	}
}

// broadcastEvent sends an event to every client; a client that cannot keep
// up is dropped rather than allowed to stall the rest.
func (h *Hub) broadcastEvent(ev protocol.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		select {
		case conn.Send <- ev:
		default:
			h.logg.Warnf("dropping slow connection %s", conn.ID)
			h.removeClientLocked(conn)
		}
	}
}
