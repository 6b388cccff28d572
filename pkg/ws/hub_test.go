package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestHub(t *testing.T) (*Hub, string, func()) {
	t.Helper()

	hub := NewHub(nil, WithSendBuffer(8), WithPingInterval(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r)
	}))

	url := strings.Replace(srv.URL, "http://", "ws://", 1)
	return hub, url, func() {
		srv.Close()
		cancel()
		hub.Stop()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestHubBroadcast(t *testing.T) {
	hub, url, cleanup := startTestHub(t)
	defer cleanup()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast(map[string]interface{}{
		"type":  "trades.imported",
		"count": 12,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "trades.imported", msg["type"])
	assert.Equal(t, float64(12), msg["count"])
}

func TestHubMultipleClients(t *testing.T) {
	hub, url, cleanup := startTestHub(t)
	defer cleanup()

	connA, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connA.Close()

	connB, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connB.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(map[string]string{"type": "trades.cleared"})

	for _, conn := range []*websocket.Conn{connA, connB} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(data), "trades.cleared")
	}
}

func TestHubClientDisconnect(t *testing.T) {
	hub, url, cleanup := startTestHub(t)
	defer cleanup()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	// Broadcasting to an empty hub must not block or panic.
	hub.Broadcast(map[string]string{"type": "noop"})
}
