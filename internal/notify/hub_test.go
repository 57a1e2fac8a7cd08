package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmolnar/mailstate/internal/dispatch"
)

// dialTestHub starts an HTTP server that registers every connection with the
// hub and dials one client connection into it.
func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// The registration happens in the server goroutine; wait for it.
	deadline := time.Now().Add(time.Second)
	for hub.ActiveConnections() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, hub.ActiveConnections())
	return conn
}

func TestHubPublishesOutcomes(t *testing.T) {
	hub := NewHub(10)
	conn := dialTestHub(t, hub)

	hub.Publish(dispatch.Outcome{
		Action: "convaction",
		Status: dispatch.StatusRejected,
		Error:  "mailbox unavailable",
		IDs:    []string{"inbox:t7"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var outcome dispatch.Outcome
	require.NoError(t, json.Unmarshal(msg, &outcome))
	assert.Equal(t, "convaction", outcome.Action)
	assert.Equal(t, dispatch.StatusRejected, outcome.Status)
	assert.Equal(t, "mailbox unavailable", outcome.Error)
	assert.Equal(t, []string{"inbox:t7"}, outcome.IDs)
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(10)
	conn := dialTestHub(t, hub)
	_ = conn

	require.Equal(t, 1, hub.ActiveConnections())

	// Unregister through the hub's own bookkeeping.
	hub.mu.RLock()
	var client *Client
	for c := range hub.clients {
		client = c
	}
	hub.mu.RUnlock()

	hub.Unregister(client)
	assert.Equal(t, 0, hub.ActiveConnections())

	// Publishing with no clients is a no-op.
	hub.Publish(dispatch.Outcome{Action: "noop", Status: dispatch.StatusFulfilled})
}

func TestHubConnectionLimit(t *testing.T) {
	hub := NewHub(1)
	dialTestHub(t, hub)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	// The second connection is closed by the hub with a policy violation.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))

	assert.Equal(t, 1, hub.ActiveConnections())
}
