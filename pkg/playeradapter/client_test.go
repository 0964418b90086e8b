package playeradapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomURL(t *testing.T) {
	u, err := RoomURL("https://watch.example.com/", "abc_123", "tok", "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "wss://watch.example.com/api/v1/ws/rooms/abc_123?auth-token=tok&code=AB12CD", u)

	u, err = RoomURL("http://localhost:8080", "abc_123", "tok", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/v1/ws/rooms/abc_123?auth-token=tok", u)

	_, err = RoomURL("ftp://example.com", "abc_123", "tok", "")
	assert.Error(t, err)
}

func TestClientRun(t *testing.T) {
	received := make(chan map[string]any, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ws/rooms/room-1", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("auth-token"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]any{"type": "joined", "payload": map[string]any{
			"room": map[string]any{"host_user_id": "h", "status": "live"},
			"self": map[string]any{"user_id": "g"},
		}})
		conn.WriteJSON(map[string]any{"type": "sync_player", "payload": map[string]any{"action": "seek", "current_time": 50}})

		var msg map[string]any
		if err := conn.ReadJSON(&msg); err == nil {
			received <- msg
		}

		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "room ended"),
			time.Now().Add(time.Second))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, srv.URL, "room-1", "tok", "")
	require.NoError(t, err)
	defer c.conn.Close()

	a, p, _ := newTestAdapter()
	a.transport = c

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, a) }()

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.userId == "g"
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, a.RequestSync(ctx))

	select {
	case msg := <-received:
		assert.Equal(t, "request_sync", msg["type"])
	case <-ctx.Done():
		t.Fatal("server did not receive request_sync")
	}

	err = <-done
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, "room ended", closeErr.Text)
	assert.Equal(t, []float64{50.0}, p.seeks)
}
