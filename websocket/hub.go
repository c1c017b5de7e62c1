package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"tradewire/metrics"
)

// Connection represents one subscriber on the live signal stream
type Connection struct {
	ID       string // unique per socket
	ClientID string // subject of the stream token that opened it
	Conn     *websocket.Conn
	Send     chan []byte
}

// Hub manages stream subscribers and fans incoming signals out to them.
// There is a single feed; every subscriber sees every signal.
type Hub struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	mu          sync.RWMutex
	done        chan struct{}
}

// NewHub creates a new Hub instance for managing stream subscribers
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
	}
}

// RegisterConnection schedules a connection to be added to the hub.
func (h *Hub) RegisterConnection(conn *Connection) {
	h.register <- conn
}

// UnregisterConnection schedules a connection to be removed from the hub.
func (h *Hub) UnregisterConnection(conn *Connection) {
	h.unregister <- conn
}

// Run starts the Hub's main event loop for managing connections
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case conn, ok := <-h.register:
			if !ok {
				return
			}
			h.mu.Lock()
			h.connections[conn.ID] = conn
			metrics.UpdateStreamClients(len(h.connections))
			h.mu.Unlock()

		case conn, ok := <-h.unregister:
			if !ok {
				return
			}
			h.mu.Lock()
			if _, exists := h.connections[conn.ID]; exists {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			metrics.UpdateStreamClients(len(h.connections))
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to every connected subscriber. Subscribers whose
// send buffer is full are dropped rather than allowed to stall the webhook path.
func (h *Hub) Broadcast(message StreamMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.connections {
		select {
		case conn.Send <- data:
		default:
			close(conn.Send)
			delete(h.connections, id)
		}
	}
	metrics.UpdateStreamClients(len(h.connections))
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Stop gracefully shuts down the Hub
func (h *Hub) Stop() {
	close(h.done)
}
