package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchPartyScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	h := newUser("h")
	g := newUser("g")
	r := e.createRoom(t, h, true, "AB12CD")

	host := e.mustJoin(t, r.Id, h, "")

	guest, res := e.join(t, r.Id, g, "AB12CD")
	require.Equal(t, AdmissionAdmitted, res.Admission)
	waitFor[JoinedEvent](t, guest.sender)
	changed := waitFor[MemberListChangedEvent](t, host.sender)
	assert.Contains(t, []string{changed.Members[0].UserId, changed.Members[1].UserId}, g.Id)

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 0))
	require.NoError(t, err)
	assert.Equal(t, SyncPlayerEvent{Action: ActionPlay, CurrentTime: 0}, waitFor[SyncPlayerEvent](t, guest.sender))

	_, err = e.s.HostAction(ctx, host.hostAction(ActionSeek, 120))
	require.NoError(t, err)
	assert.Equal(t, SyncPlayerEvent{Action: ActionSeek, CurrentTime: 120}, waitFor[SyncPlayerEvent](t, guest.sender))

	_, err = e.s.Ban(ctx, host.target(g.Id))
	require.NoError(t, err)
	banned := waitFor[BannedEvent](t, guest.sender)
	assert.Equal(t, g.Id, banned.UserId)
	waitClosed(t, guest.sender)
	assert.NotContains(t, memberIds(e.state(t, r.Id)), g.Id)

	again, res := e.join(t, r.Id, g, "AB12CD")
	require.Equal(t, AdmissionPending, res.Admission)
	request := waitFor[HostReceiveJoinRequestEvent](t, host.sender)
	assert.Equal(t, g.Id, request.UserId)

	_, err = e.s.RejectJoin(ctx, host.target(g.Id))
	require.NoError(t, err)
	waitFor[JoinRejectedEvent](t, again.sender)
	assert.Equal(t, "join rejected", waitClosed(t, again.sender))
	assert.Equal(t, []string{h.Id}, memberIds(e.state(t, r.Id)))
}
