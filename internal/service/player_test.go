package service

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c *testClient) hostAction(action PlayerAction, at float64) *HostActionParams {
	return &HostActionParams{SessionParams: c.session(), Action: action, AtTime: at}
}

func TestHostActionBroadcastsExactTime(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	g1 := e.mustJoin(t, r.Id, newUser("g1"), "")
	g2 := e.mustJoin(t, r.Id, newUser("g2"), "")
	host.sender.drain()

	for _, at := range []float64{0, 123.456, 0.1 + 0.2, 7200.000001} {
		outcome, err := e.s.HostAction(ctx, host.hostAction(ActionSeek, at))
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)

		for _, guest := range []*testClient{g1, g2} {
			sync := waitFor[SyncPlayerEvent](t, guest.sender)
			assert.Equal(t, ActionSeek, sync.Action)
			assert.Equal(t, at, sync.CurrentTime, "seek time must be relayed exactly")
		}
	}

	assertNoEvent[SyncPlayerEvent](t, host.sender)
}

func TestHostActionUpdatesPlayback(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	assert.Equal(t, "scheduled", e.state(t, r.Id).Room.Status)

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 10))
	require.NoError(t, err)
	state := e.state(t, r.Id)
	require.NotNil(t, state.Playback)
	assert.True(t, state.Playback.IsPlaying)
	assert.Equal(t, 10.0, state.Playback.CurrentTime)
	assert.Equal(t, "live", state.Room.Status)
	assert.Equal(t, e.clock.Now().UnixMilli(), state.Room.StartedAt)

	e.clock.Add(5 * time.Second)
	assert.Equal(t, 15.0, e.state(t, r.Id).Playback.CurrentTime, "playing state is extrapolated")

	_, err = e.s.HostAction(ctx, host.hostAction(ActionPause, 15))
	require.NoError(t, err)
	e.clock.Add(5 * time.Second)
	state = e.state(t, r.Id)
	assert.False(t, state.Playback.IsPlaying)
	assert.Equal(t, 15.0, state.Playback.CurrentTime)

	_, err = e.s.HostAction(ctx, host.hostAction(ActionSeek, 60))
	require.NoError(t, err)
	state = e.state(t, r.Id)
	assert.False(t, state.Playback.IsPlaying, "seek keeps is playing")
	assert.Equal(t, 60.0, state.Playback.CurrentTime)

	persisted, err := e.s.GetRoom(ctx, r.Id, "")
	require.NoError(t, err)
	assert.Equal(t, "live", persisted.Status)
	assert.NotZero(t, persisted.StartedAt)
}

func TestHostActionValidation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")

	for _, params := range []*HostActionParams{
		host.hostAction("rewind", 1),
		host.hostAction(ActionSeek, -1),
		host.hostAction(ActionSeek, math.NaN()),
		host.hostAction(ActionPlay, math.Inf(1)),
	} {
		_, err := e.s.HostAction(ctx, params)
		assert.ErrorIs(t, err, ErrInvalidInput, "action %q at %v", params.Action, params.AtTime)
	}

	assert.Nil(t, e.state(t, r.Id).Playback)
}

func TestNonHostActionsNeverMutate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	guests := []*testClient{
		e.mustJoin(t, r.Id, newUser("g1"), ""),
		e.mustJoin(t, r.Id, newUser("g2"), ""),
		e.mustJoin(t, r.Id, newUser("g3"), ""),
	}

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 42))
	require.NoError(t, err)
	before := e.state(t, r.Id)
	for _, g := range guests {
		g.sender.drain()
	}

	rng := rand.New(rand.NewSource(1))
	actions := []PlayerAction{ActionPlay, ActionPause, ActionSeek}
	for i := 0; i < 200; i++ {
		actor := guests[rng.Intn(len(guests))]
		action := actions[rng.Intn(len(actions))]
		at := rng.Float64() * 1000

		_, err := e.s.HostAction(ctx, actor.hostAction(action, at))
		require.ErrorIs(t, err, ErrPermissionDenied)
	}

	after := e.state(t, r.Id)
	assert.Equal(t, before.Playback, after.Playback)
	for _, g := range guests {
		assertNoEvent[SyncPlayerEvent](t, g.sender)
	}
}

func TestRequestSync(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	requester := e.mustJoin(t, r.Id, newUser("requester"), "")
	other := e.mustJoin(t, r.Id, newUser("other"), "")

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 0))
	require.NoError(t, err)
	host.sender.drain()
	requester.sender.drain()
	other.sender.drain()

	session := requester.session()
	_, err = e.s.RequestSync(ctx, &session)
	require.NoError(t, err)
	// duplicate requests are merged
	_, err = e.s.RequestSync(ctx, &session)
	require.NoError(t, err)

	ask := waitFor[GetHostTimeEvent](t, host.sender)
	assert.Equal(t, requester.user.Id, ask.RequesterId)
	assertNoEvent[GetHostTimeEvent](t, host.sender)

	_, err = e.s.SendHostTime(ctx, &SendHostTimeParams{
		SessionParams: other.session(),
		RequesterId:   requester.user.Id,
		CurrentTime:   1,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied, "only host answers")

	_, err = e.s.SendHostTime(ctx, &SendHostTimeParams{
		SessionParams: host.session(),
		RequesterId:   requester.user.Id,
		CurrentTime:   33.5,
		IsPlaying:     true,
	})
	require.NoError(t, err)

	events := requester.sender.queued()
	require.Len(t, events, 1)
	assert.Equal(t, SyncInitialEvent{CurrentTime: 33.5, IsPlaying: true}, events[0])
	assert.Empty(t, other.sender.queued())
	assertNoEvent[SyncInitialEvent](t, host.sender)

	// late timeout does not deliver a second sync
	e.clock.Add(3 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, requester.sender.queued())
}

func TestRequestSyncTimeoutFallback(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	requester := e.mustJoin(t, r.Id, newUser("requester"), "")

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 10))
	require.NoError(t, err)
	requester.sender.drain()

	e.clock.Add(5 * time.Second)
	session := requester.session()
	_, err = e.s.RequestSync(ctx, &session)
	require.NoError(t, err)
	waitFor[GetHostTimeEvent](t, host.sender)

	e.clock.Add(2 * time.Second)
	sync := waitFor[SyncInitialEvent](t, requester.sender)
	assert.True(t, sync.IsPlaying)
	assert.InDelta(t, 17.0, sync.CurrentTime, 1e-9)

	// the answer after timeout is dropped
	_, err = e.s.SendHostTime(ctx, &SendHostTimeParams{
		SessionParams: host.session(),
		RequesterId:   requester.user.Id,
		CurrentTime:   17,
		IsPlaying:     true,
	})
	require.NoError(t, err)
	assertNoEvent[SyncInitialEvent](t, requester.sender)
}

func TestRequestSyncWithoutHost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPause, 90))
	require.NoError(t, err)

	session := host.session()
	_, err = e.s.RequestSync(ctx, &session)
	require.NoError(t, err)
	sync := waitFor[SyncInitialEvent](t, host.sender)
	assert.Equal(t, SyncInitialEvent{CurrentTime: 90, IsPlaying: false}, sync)
}

func TestRequestSyncRequesterLeaves(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	requester := e.mustJoin(t, r.Id, newUser("requester"), "")
	other := e.mustJoin(t, r.Id, newUser("other"), "")

	session := requester.session()
	_, err := e.s.RequestSync(ctx, &session)
	require.NoError(t, err)
	waitFor[GetHostTimeEvent](t, host.sender)

	require.NoError(t, e.s.Leave(ctx, &session))
	requester.sender.drain()
	other.sender.drain()

	outcome, err := e.s.SendHostTime(ctx, &SendHostTimeParams{
		SessionParams: host.session(),
		RequesterId:   requester.user.Id,
		CurrentTime:   5,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	e.clock.Add(3 * time.Second)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, requester.sender.queued())
	assertNoEvent[SyncInitialEvent](t, other.sender)
	assertNoEvent[SyncInitialEvent](t, host.sender)
}

func TestRequestSyncResolvedOnHostChange(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")
	requester := e.mustJoin(t, r.Id, newUser("requester"), "")
	e.mustJoin(t, r.Id, newUser("other"), "")

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPause, 12))
	require.NoError(t, err)

	session := requester.session()
	_, err = e.s.RequestSync(ctx, &session)
	require.NoError(t, err)

	hostSession := host.session()
	require.NoError(t, e.s.Leave(ctx, &hostSession))

	sync := waitFor[SyncInitialEvent](t, requester.sender)
	assert.Equal(t, 12.0, sync.CurrentTime)
}

func TestPollSchedule(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	scheduledAt := e.clock.Now().Add(10 * time.Minute)
	r, err := e.s.CreateRoom(ctx, &CreateRoomParams{
		User:        hostUser,
		Title:       "premiere",
		ScheduledAt: &scheduledAt,
	})
	require.NoError(t, err)
	assert.Equal(t, scheduledAt.UnixMilli(), r.ScheduledAt)

	host := e.mustJoin(t, r.Id, hostUser, "")
	guest := e.mustJoin(t, r.Id, newUser("guest"), "")
	host.sender.drain()
	guest.sender.drain()

	session := guest.session()
	_, err = e.s.PollSchedule(ctx, &session)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	session = host.session()
	outcome, err := e.s.PollSchedule(ctx, &session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, outcome)
	assert.Nil(t, e.state(t, r.Id).Playback)

	e.clock.Add(10 * time.Minute)
	outcome, err = e.s.PollSchedule(ctx, &session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	for _, c := range []*testClient{host, guest} {
		sync := waitFor[SyncPlayerEvent](t, c.sender)
		assert.Equal(t, SyncPlayerEvent{Action: ActionPlay, CurrentTime: 0}, sync)
	}

	state := e.state(t, r.Id)
	assert.Equal(t, "live", state.Room.Status)
	assert.True(t, state.Playback.IsPlaying)

	outcome, err = e.s.PollSchedule(ctx, &session)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotDue, outcome, "live rooms are not started again")
}

func TestJoinedSnapshotCarriesPlayback(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	hostUser := newUser("host")
	r := e.createRoom(t, hostUser, false, "")
	host := e.mustJoin(t, r.Id, hostUser, "")

	_, err := e.s.HostAction(ctx, host.hostAction(ActionPlay, 100))
	require.NoError(t, err)
	e.clock.Add(30 * time.Second)

	late, res := e.join(t, r.Id, newUser("late"), "")
	require.Equal(t, AdmissionAdmitted, res.Admission)
	joined := waitFor[JoinedEvent](t, late.sender)
	require.NotNil(t, joined.Playback)
	assert.True(t, joined.Playback.IsPlaying)
	assert.Equal(t, 130.0, joined.Playback.CurrentTime)
}
