package playeradapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	time    float64
	playing bool
	seeks   []float64
}

func (p *fakePlayer) CurrentTime() float64 { return p.time }
func (p *fakePlayer) IsPlaying() bool      { return p.playing }
func (p *fakePlayer) Play() error          { p.playing = true; return nil }
func (p *fakePlayer) Pause() error         { p.playing = false; return nil }
func (p *fakePlayer) Seek(seconds float64) error {
	p.time = seconds
	p.seeks = append(p.seeks, seconds)
	return nil
}

type sent struct {
	messageType string
	payload     any
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sent
}

func (t *fakeTransport) Send(_ context.Context, messageType string, payload any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sent{messageType, payload})
	return nil
}

func newTestAdapter() (*Adapter, *fakePlayer, *fakeTransport) {
	p := &fakePlayer{}
	tr := &fakeTransport{}
	return New(p, tr, slog.New(slog.NewTextHandler(io.Discard, nil))), p, tr
}

func message(t *testing.T, messageType string, payload any) Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{Type: messageType, Payload: raw}
}

func joined(t *testing.T, self, host, status string, scheduledAt int64, pb map[string]any) Message {
	t.Helper()
	payload := map[string]any{
		"room": map[string]any{"host_user_id": host, "status": status, "scheduled_at": scheduledAt},
		"self": map[string]any{"user_id": self},
	}
	if pb != nil {
		payload["playback"] = pb
	}
	return message(t, "joined", payload)
}

func TestGuestDriftPolicy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		local     float64
		action    string
		roomTime  float64
		wantSeeks []float64
		playing   bool
	}{
		{"play within threshold", 10.5, "play", 10, nil, true},
		{"play exactly at threshold", 11, "play", 10, nil, true},
		{"play beyond threshold", 11.5, "play", 10, []float64{10}, true},
		{"pause beyond threshold", 3, "pause", 7.2, []float64{7.2}, false},
		{"pause within threshold", 7, "pause", 7.2, nil, false},
		{"seek is unconditional", 120.1, "seek", 120, []float64{120}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, p, _ := newTestAdapter()
			require.NoError(t, a.Handle(ctx, joined(t, "g", "h", "live", 0, nil)))
			p.time = tt.local

			require.NoError(t, a.Handle(ctx, message(t, "sync_player", map[string]any{
				"action":       tt.action,
				"current_time": tt.roomTime,
			})))

			assert.Equal(t, tt.wantSeeks, p.seeks)
			assert.Equal(t, tt.playing, p.playing)
		})
	}
}

func TestHostIgnoresSyncAndAnswersHostTime(t *testing.T) {
	ctx := context.Background()
	a, p, tr := newTestAdapter()
	require.NoError(t, a.Handle(ctx, joined(t, "h", "h", "live", 0, map[string]any{"current_time": 50, "is_playing": true})))
	assert.True(t, a.IsHost())
	assert.Empty(t, p.seeks)

	p.time = 42.5
	p.playing = true
	require.NoError(t, a.Handle(ctx, message(t, "sync_player", map[string]any{"action": "seek", "current_time": 3})))
	require.NoError(t, a.Handle(ctx, message(t, "sync_initial", map[string]any{"current_time": 3, "is_playing": false})))
	assert.Empty(t, p.seeks)

	require.NoError(t, a.Handle(ctx, message(t, "get_host_time", map[string]any{"requester_id": "g"})))
	require.Len(t, tr.sent, 1)
	assert.Equal(t, "send_host_time", tr.sent[0].messageType)
	assert.Equal(t, map[string]any{"requester_id": "g", "current_time": 42.5, "is_playing": true}, tr.sent[0].payload)
}

func TestGuestDoesNotAnswerHostTime(t *testing.T) {
	ctx := context.Background()
	a, _, tr := newTestAdapter()
	require.NoError(t, a.Handle(ctx, joined(t, "g", "h", "live", 0, nil)))

	require.NoError(t, a.Handle(ctx, message(t, "get_host_time", map[string]any{"requester_id": "x"})))
	assert.Empty(t, tr.sent)
}

func TestGuestAppliesSnapshots(t *testing.T) {
	ctx := context.Background()
	a, p, _ := newTestAdapter()
	require.NoError(t, a.Handle(ctx, joined(t, "g", "h", "live", 0, map[string]any{"current_time": 130, "is_playing": true})))
	assert.Equal(t, []float64{130.0}, p.seeks)
	assert.True(t, p.playing)

	require.NoError(t, a.Handle(ctx, message(t, "sync_initial", map[string]any{"current_time": 130.4, "is_playing": false})))
	assert.Equal(t, []float64{130.0, 130.4}, p.seeks)
	assert.False(t, p.playing)
}

func TestHostTransferChangesRole(t *testing.T) {
	ctx := context.Background()
	a, p, tr := newTestAdapter()
	require.NoError(t, a.Handle(ctx, joined(t, "g", "h", "live", 0, nil)))
	assert.False(t, a.IsHost())

	require.NoError(t, a.Play(ctx))
	assert.True(t, p.playing)
	assert.Empty(t, tr.sent)

	require.NoError(t, a.Handle(ctx, message(t, "host_transferred", map[string]any{"host_user_id": "g", "previous_host_user_id": "h"})))
	assert.True(t, a.IsHost())

	p.time = 12
	require.NoError(t, a.Pause(ctx))
	require.NoError(t, a.Seek(ctx, 30))
	require.Len(t, tr.sent, 2)
	assert.Equal(t, sent{"sync_action", map[string]any{"action": "pause", "current_time": 12.0}}, tr.sent[0])
	assert.Equal(t, sent{"seek_action", map[string]any{"current_time": 30.0}}, tr.sent[1])
}

func TestTickStartsScheduledRoomOnce(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, time.March, 1, 21, 0, 0, 0, time.UTC)
	a, p, tr := newTestAdapter()
	require.NoError(t, a.Handle(ctx, joined(t, "h", "h", "scheduled", start.UnixMilli(), nil)))

	started, err := a.Tick(ctx, start.Add(-time.Second))
	require.NoError(t, err)
	assert.False(t, started)

	started, err = a.Tick(ctx, start)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, p.playing)
	require.Len(t, tr.sent, 1)
	assert.Equal(t, "sync_action", tr.sent[0].messageType)

	p.playing = false
	started, err = a.Tick(ctx, start.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, started)
}

func TestTickIgnoredByGuestsAndLiveRooms(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, time.March, 1, 21, 0, 0, 0, time.UTC)

	guest, _, _ := newTestAdapter()
	require.NoError(t, guest.Handle(ctx, joined(t, "g", "h", "scheduled", start.UnixMilli(), nil)))
	started, err := guest.Tick(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, started)

	host, _, _ := newTestAdapter()
	require.NoError(t, host.Handle(ctx, joined(t, "h", "h", "live", start.UnixMilli(), nil)))
	started, err = host.Tick(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, started)
}
