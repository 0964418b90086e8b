// Package playeradapter keeps a local media player in step with a watch
// party room. Guests obey the room; the host is the source of truth and
// reports its own position when the room asks for it.
package playeradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DriftThreshold is the largest difference in seconds a play or pause
// command tolerates before the local player is snapped to the room time.
const DriftThreshold = 1.0

const (
	actionPlay  = "play"
	actionPause = "pause"
	actionSeek  = "seek"

	statusScheduled = "scheduled"
	statusLive      = "live"
)

type Player interface {
	CurrentTime() float64
	IsPlaying() bool
	Play() error
	Pause() error
	Seek(seconds float64) error
}

type Transport interface {
	Send(ctx context.Context, messageType string, payload any) error
}

// Message is one server event as it arrives on the wire.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type playback struct {
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
}

type joinedPayload struct {
	Room struct {
		HostUserId  string `json:"host_user_id"`
		Status      string `json:"status"`
		ScheduledAt int64  `json:"scheduled_at"`
	} `json:"room"`
	Self struct {
		UserId string `json:"user_id"`
	} `json:"self"`
	Playback *playback `json:"playback"`
}

type syncPlayerPayload struct {
	Action      string  `json:"action"`
	CurrentTime float64 `json:"current_time"`
}

type getHostTimePayload struct {
	RequesterId string `json:"requester_id"`
}

type hostPayload struct {
	HostUserId string `json:"host_user_id"`
}

type Adapter struct {
	player    Player
	transport Transport
	logger    *slog.Logger

	mu          sync.Mutex
	userId      string
	hostUserId  string
	status      string
	scheduledAt time.Time
	autoStarted bool
}

func New(player Player, transport Transport, logger *slog.Logger) *Adapter {
	return &Adapter{
		player:    player,
		transport: transport,
		logger:    logger,
	}
}

func (a *Adapter) IsHost() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.isHost()
}

func (a *Adapter) isHost() bool {
	return a.userId != "" && a.userId == a.hostUserId
}

// Handle applies one server event to the local player.
func (a *Adapter) Handle(ctx context.Context, msg Message) error {
	switch msg.Type {
	case "joined":
		var p joinedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode joined: %w", err)
		}
		return a.handleJoined(p)
	case "sync_player":
		var p syncPlayerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode sync_player: %w", err)
		}
		return a.handleSyncPlayer(p)
	case "sync_initial":
		var p playback
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode sync_initial: %w", err)
		}
		if a.IsHost() {
			return nil
		}
		return a.snapTo(p)
	case "get_host_time":
		var p getHostTimePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode get_host_time: %w", err)
		}
		return a.answerHostTime(ctx, p.RequesterId)
	case "host_transferred", "member_list_changed":
		var p hostPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s: %w", msg.Type, err)
		}
		a.mu.Lock()
		a.hostUserId = p.HostUserId
		a.mu.Unlock()
	}

	return nil
}

func (a *Adapter) handleJoined(p joinedPayload) error {
	a.mu.Lock()
	a.userId = p.Self.UserId
	a.hostUserId = p.Room.HostUserId
	a.status = p.Room.Status
	a.scheduledAt = time.Time{}
	if p.Room.ScheduledAt > 0 {
		a.scheduledAt = time.UnixMilli(p.Room.ScheduledAt)
	}
	isHost := a.isHost()
	a.mu.Unlock()

	if isHost || p.Playback == nil {
		return nil
	}

	return a.snapTo(*p.Playback)
}

func (a *Adapter) handleSyncPlayer(p syncPlayerPayload) error {
	a.mu.Lock()
	a.status = statusLive
	isHost := a.isHost()
	a.mu.Unlock()

	if isHost {
		return nil
	}

	switch p.Action {
	case actionSeek:
		return a.player.Seek(p.CurrentTime)
	case actionPlay:
		if err := a.correctDrift(p.CurrentTime); err != nil {
			return err
		}
		if !a.player.IsPlaying() {
			return a.player.Play()
		}
	case actionPause:
		if err := a.correctDrift(p.CurrentTime); err != nil {
			return err
		}
		if a.player.IsPlaying() {
			return a.player.Pause()
		}
	default:
		a.logger.Warn("unknown player action", "action", p.Action)
	}

	return nil
}

func (a *Adapter) correctDrift(roomTime float64) error {
	if math.Abs(a.player.CurrentTime()-roomTime) > DriftThreshold {
		return a.player.Seek(roomTime)
	}

	return nil
}

// snapTo applies a full playback snapshot. The position is applied unconditionally.
func (a *Adapter) snapTo(p playback) error {
	if err := a.player.Seek(p.CurrentTime); err != nil {
		return err
	}

	switch {
	case p.IsPlaying && !a.player.IsPlaying():
		return a.player.Play()
	case !p.IsPlaying && a.player.IsPlaying():
		return a.player.Pause()
	}

	return nil
}

func (a *Adapter) answerHostTime(ctx context.Context, requesterId string) error {
	if !a.IsHost() {
		return nil
	}

	return a.transport.Send(ctx, "send_host_time", map[string]any{
		"requester_id": requesterId,
		"current_time": a.player.CurrentTime(),
		"is_playing":   a.player.IsPlaying(),
	})
}

// Play starts the local player and, for the host, the room.
func (a *Adapter) Play(ctx context.Context) error {
	if err := a.player.Play(); err != nil {
		return err
	}

	return a.sendAction(ctx, actionPlay)
}

func (a *Adapter) Pause(ctx context.Context) error {
	if err := a.player.Pause(); err != nil {
		return err
	}

	return a.sendAction(ctx, actionPause)
}

func (a *Adapter) Seek(ctx context.Context, seconds float64) error {
	if err := a.player.Seek(seconds); err != nil {
		return err
	}

	if !a.IsHost() {
		return nil
	}

	return a.transport.Send(ctx, "seek_action", map[string]any{"current_time": seconds})
}

// RequestSync asks the room for the host position.
func (a *Adapter) RequestSync(ctx context.Context) error {
	return a.transport.Send(ctx, "request_sync", nil)
}

func (a *Adapter) sendAction(ctx context.Context, action string) error {
	a.mu.Lock()
	isHost := a.isHost()
	if isHost {
		a.status = statusLive
	}
	a.mu.Unlock()

	if !isHost {
		return nil
	}

	return a.transport.Send(ctx, "sync_action", map[string]any{
		"action":       action,
		"current_time": a.player.CurrentTime(),
	})
}

// Tick starts a scheduled room once its start time has passed. Only the
// host acts, and only once.
func (a *Adapter) Tick(ctx context.Context, now time.Time) (bool, error) {
	a.mu.Lock()
	due := a.isHost() &&
		!a.autoStarted &&
		a.status == statusScheduled &&
		!a.scheduledAt.IsZero() &&
		!now.Before(a.scheduledAt)
	if due {
		a.autoStarted = true
	}
	scheduledAt := a.scheduledAt
	a.mu.Unlock()

	if !due || a.player.IsPlaying() {
		return false, nil
	}

	a.logger.Info("scheduled start reached", "scheduled_at", scheduledAt)
	if err := a.Play(ctx); err != nil {
		return false, err
	}

	return true, nil
}
