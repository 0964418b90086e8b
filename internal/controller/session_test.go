package controller

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sharetube/watchparty/internal/service"
	"github.com/stretchr/testify/assert"
)

func newQueueOnlySession(size int) *session {
	return &session{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		queue:  make(chan Output, size),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func TestSessionSend(t *testing.T) {
	s := newQueueOnlySession(2)

	assert.True(t, s.Send(service.JoinPendingEvent{RoomId: "room-1"}))
	out := <-s.queue
	assert.Equal(t, "join_pending", out.Type)
	assert.Equal(t, service.JoinPendingEvent{RoomId: "room-1"}, out.Payload)
}

func TestSessionFullQueueClosesSession(t *testing.T) {
	s := newQueueOnlySession(1)

	assert.True(t, s.Send(service.SyncInitialEvent{CurrentTime: 1}))
	assert.False(t, s.Send(service.SyncInitialEvent{CurrentTime: 2}))
	assert.True(t, s.isClosed())
	assert.Equal(t, "slow consumer", s.reason)

	assert.False(t, s.Send(service.SyncInitialEvent{CurrentTime: 3}))
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := newQueueOnlySession(1)

	s.Close("kicked")
	s.Close("left")

	assert.True(t, s.isClosed())
	assert.Equal(t, "kicked", s.reason)
}
