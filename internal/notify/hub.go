package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmolnar/mailstate/internal/dispatch"
)

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// Hub manages active WebSocket connections and fans dispatch outcomes out to
// them. Multiple connections (e.g. multiple tabs) are supported up to a limit.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	max     int
}

// NewHub creates a new Hub with a connection limit.
func NewHub(max int) *Hub {
	if max <= 0 {
		max = 10
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		max:     max,
	}
}

// Register adds a WebSocket connection. If the limit is exceeded, the new
// connection is closed and nil is returned.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.max {
		log.Printf("notify: max connections (%d) exceeded, closing new connection", h.max)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			// Use zero deadline - best effort.
			// See https://pkg.go.dev/github.com/gorilla/websocket#Conn.WriteControl
			// for details.
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	h.clients[client] = struct{}{}
	return client
}

// Unregister removes a client and closes the connection.
func (h *Hub) Unregister(client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	_ = client.conn.Close()
}

// Publish sends a dispatch outcome to every connected client.
func (h *Hub) Publish(outcome dispatch.Outcome) {
	msg, err := json.Marshal(outcome)
	if err != nil {
		log.Printf("notify: failed to marshal outcome: %v", err)
		return
	}
	h.Send(msg)
}

// Send broadcasts a message to all active clients.
func (h *Hub) Send(msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("notify: failed to write message: %v", err)
			// Best-effort cleanup: unregister this client.
			go h.Unregister(client)
		}
	}
}

// ActiveConnections returns the number of active WebSocket connections.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
