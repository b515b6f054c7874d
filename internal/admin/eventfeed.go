package admin

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"revtun/internal/rendezvous"
)

// EventFeed implements rendezvous.EventSink by fanning out every published
// Event as JSON to every connected websocket client, adapted from the
// upgrade-then-copy pattern used for the web terminal in the example pack.
type EventFeed struct {
	upgrader   websocket.Upgrader
	instanceID string

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

var _ rendezvous.EventSink = (*EventFeed)(nil)

// taggedEvent is the wire shape pushed to websocket clients: the rendezvous
// Event plus the server process's run identity, so a watcher following the
// feed across a server restart can tell the events apart.
type taggedEvent struct {
	rendezvous.Event
	InstanceID string `json:"instance_id"`
}

// NewEventFeed returns an EventFeed ready to serve ServeHTTP and Publish,
// tagging every event with instanceID.
func NewEventFeed(instanceID string) *EventFeed {
	return &EventFeed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		instanceID: instanceID,
		clients:    make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and registers it to receive
// every future Publish call until the client disconnects.
func (f *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[admin-ws] upgrade failed: %v", err)
		return
	}

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	// Drain and discard client messages; this feed is output-only. The read
	// loop exists solely to detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	f.mu.Lock()
	delete(f.clients, conn)
	f.mu.Unlock()
	conn.Close()
}

// Publish sends ev as JSON to every connected client. A write failure drops
// that client; Publish itself never blocks on a slow reader beyond one
// WriteMessage call per connected client.
func (f *EventFeed) Publish(ev rendezvous.Event) {
	data, err := json.Marshal(taggedEvent{Event: ev, InstanceID: f.instanceID})
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn := range f.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			delete(f.clients, conn)
			conn.Close()
		}
	}
}
