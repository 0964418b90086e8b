package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *testClient) message(text string) *SendMessageParams {
	return &SendMessageParams{SessionParams: c.session(), Text: text}
}

func TestSendMessage(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	guest := e.mustJoin(t, r.Id, newUser("guest"), "")

	msg, err := e.s.SendMessage(ctx, guest.message("  hello everyone "))
	require.NoError(t, err)
	assert.Equal(t, "hello everyone", msg.Text)
	assert.False(t, msg.IsHost)
	assert.NotEmpty(t, msg.Id)

	for _, c := range []*testClient{host, guest} {
		received := waitFor[NewMessageEvent](t, c.sender)
		assert.Equal(t, msg, received.ChatMessage, "sender receives its own message too")
	}

	msg, err = e.s.SendMessage(ctx, host.message("welcome"))
	require.NoError(t, err)
	assert.True(t, msg.IsHost)

	// is host is computed at send time
	_, err = e.s.TransferHost(ctx, host.target(guest.user.Id))
	require.NoError(t, err)
	msg, err = e.s.SendMessage(ctx, host.message("bye"))
	require.NoError(t, err)
	assert.False(t, msg.IsHost)

	history, err := e.s.GetMessages(ctx, &GetMessagesParams{RoomId: r.Id, UserId: guest.user.Id})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hello everyone", history[0].Text)
	assert.True(t, history[1].IsHost)
	assert.False(t, history[2].IsHost)
}

func TestSendMessageValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")

	_, err := e.s.SendMessage(ctx, host.message("   "))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.s.SendMessage(ctx, host.message(strings.Repeat("я", 1001)))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.s.SendMessage(ctx, host.message(strings.Repeat("я", 1000)))
	assert.NoError(t, err, "length is counted in runes")

	stranger := &testClient{user: newUser("stranger"), roomId: r.Id, sessionId: "nope"}
	_, err = e.s.SendMessage(ctx, stranger.message("hi"))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestJoinedSnapshotCarriesHistory(t *testing.T) {
	e := newTestEnv(t, func(c *Config) { c.ChatHistoryLimit = 3 })
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")

	for i := 0; i < 5; i++ {
		_, err := e.s.SendMessage(ctx, host.message(fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
	}

	late, res := e.join(t, r.Id, newUser("late"), "")
	require.Equal(t, AdmissionAdmitted, res.Admission)
	joined := waitFor[JoinedEvent](t, late.sender)
	require.Len(t, joined.Messages, 3)
	assert.Equal(t, "message 2", joined.Messages[0].Text)
	assert.Equal(t, "message 4", joined.Messages[2].Text)
}

func TestGetMessagesPrivateRoom(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, true, "AB12CD")
	host := e.mustJoin(t, r.Id, hostUser, "")
	_, err := e.s.SendMessage(ctx, host.message("secret plans"))
	require.NoError(t, err)

	_, err = e.s.GetMessages(ctx, &GetMessagesParams{RoomId: r.Id, UserId: "guest-id"})
	assert.ErrorIs(t, err, ErrInvalidCode)

	history, err := e.s.GetMessages(ctx, &GetMessagesParams{RoomId: r.Id, UserId: "guest-id", Code: "AB12CD"})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	history, err = e.s.GetMessages(ctx, &GetMessagesParams{RoomId: r.Id, UserId: hostUser.Id})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = e.s.GetMessages(ctx, &GetMessagesParams{RoomId: "unknown-room", UserId: hostUser.Id})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
