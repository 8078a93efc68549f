package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup-chat-service/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()
	info := ConnInfo{ConnID: "c-1", UserID: 1, ConnectedAt: time.Now()}

	hub.AddClient(7, nil, info)

	hub.mu.RLock()
	assert.Len(t, hub.rooms[7], 1)
	assert.Len(t, hub.connInfo[7], 1)
	hub.mu.RUnlock()

	hub.RemoveClient(7, nil)

	hub.mu.RLock()
	assert.Empty(t, hub.rooms)
	assert.Empty(t, hub.connInfo)
	hub.mu.RUnlock()
}

func TestHubRemoveClientUnknownThread(t *testing.T) {
	hub := NewHub()

	// must not panic for a thread that never had clients
	hub.RemoveClient(42, nil)
	assert.Empty(t, hub.rooms)
}

func TestHubBroadcastDuringHandshakes(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient(7, conn, ConnInfo{ConnID: newConnID(), ConnectedAt: time.Now()})
	}))
	defer srv.Close()

	// broadcast into the room while handshakes keep joining it
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			hub.BroadcastMessage(7, models.Message{ID: int64(i), ThreadID: 7, SenderID: 1, Content: "x"})
		}
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clients := make([]*websocket.Conn, 0, 10)
	for i := 0; i < 10; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		clients = append(clients, conn)
	}
	<-done

	for _, conn := range clients {
		conn.Close()
	}
}

func TestHubConnInfoLookup(t *testing.T) {
	hub := NewHub()
	info := ConnInfo{ConnID: "c-9", UserID: 3, DeviceID: "dev-1", ConnectedAt: time.Now()}

	hub.AddClient(7, nil, info)

	got, ok := hub.getConnInfo(7, nil)
	assert.True(t, ok)
	assert.Equal(t, "c-9", got.ConnID)
	assert.Equal(t, int64(3), got.UserID)

	_, ok = hub.getConnInfo(8, nil)
	assert.False(t, ok)
}
