package admin

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"revtun/internal/rendezvous"
)

func TestEventFeedBroadcastsToConnectedClients(t *testing.T) {
	feed := NewEventFeed("test-instance")
	srv := httptest.NewServer(feed)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the client before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		feed.mu.Lock()
		n := len(feed.clients)
		feed.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	feed.Publish(rendezvous.Event{Kind: "listen", Port: 8080})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(data), `"listen"`)
	require.Contains(t, string(data), "8080")
}
