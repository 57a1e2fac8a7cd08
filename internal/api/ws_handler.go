package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dmolnar/mailstate/internal/notify"
)

// WebSocketHandler handles the /api/v1/ws endpoint for outcome notifications.
type WebSocketHandler struct {
	hub *notify.Hub
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(hub *notify.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// For now, allow all origins. This server is expected to be used
		// behind a reverse proxy in a trusted environment.
		return true
	},
}

// Handle upgrades the HTTP connection to a WebSocket and registers it with
// the hub. Authentication happens in the middleware; the forward-auth proxy
// sets the Remote-User header on upgrade requests like on any other.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection: %v", err)
		return
	}

	client := h.hub.Register(conn)
	if client == nil {
		log.Printf("WebSocketHandler: connection rejected (max connections exceeded)")
		return
	}

	// Read loop to keep the connection open and detect disconnects.
	go h.readLoop(client)
}

// readLoop reads messages from the WebSocket until the connection is closed,
// then unregisters the client.
func (h *WebSocketHandler) readLoop(client *notify.Client) {
	conn := client.Conn()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.hub.Unregister(client)
}
