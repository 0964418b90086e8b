package service

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type HostActionParams struct {
	SessionParams
	Action PlayerAction
	AtTime float64
}

func (s *service) HostAction(ctx context.Context, params *HostActionParams) (Outcome, error) {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, hostActionCmd{
		origin: params.origin(ctx),
		action: params.Action,
		atTime: params.AtTime,
		reply:  reply,
	}, reply)
}

func (s *service) RequestSync(ctx context.Context, params *SessionParams) (Outcome, error) {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, requestSyncCmd{origin: params.origin(ctx), reply: reply}, reply)
}

type SendHostTimeParams struct {
	SessionParams
	RequesterId string
	CurrentTime float64
	IsPlaying   bool
}

func (s *service) SendHostTime(ctx context.Context, params *SendHostTimeParams) (Outcome, error) {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, sendHostTimeCmd{
		origin:      params.origin(ctx),
		requesterId: params.RequesterId,
		currentTime: params.CurrentTime,
		isPlaying:   params.IsPlaying,
		reply:       reply,
	}, reply)
}

// PollSchedule starts playback of a scheduled room once its time has come.
func (s *service) PollSchedule(ctx context.Context, params *SessionParams) (Outcome, error) {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, pollScheduleCmd{origin: params.origin(ctx), reply: reply}, reply)
}

func (a *roomActor) handleHostAction(cmd hostActionCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	if err := validation.Validate(string(cmd.action), PlayerActionRule...); err != nil {
		return "", fmt.Errorf("%w: action: %w", ErrInvalidInput, err)
	}

	if err := validation.Validate(cmd.atTime, PlayerTimeRule...); err != nil {
		return "", fmt.Errorf("%w: current_time: %w", ErrInvalidInput, err)
	}

	if err := a.applyHostAction(cmd.ctx, cmd.action, cmd.atTime); err != nil {
		return "", err
	}

	a.broadcastExcept(a.record.HostUserId, SyncPlayerEvent{
		Action:      cmd.action,
		CurrentTime: cmd.atTime,
	})

	return OutcomeApplied, nil
}

// applyHostAction persists and then applies a validated action.
func (a *roomActor) applyHostAction(ctx context.Context, action PlayerAction, atTime float64) error {
	now := a.s.now()

	next := PlaybackState{LastUpdatedAt: now}
	if a.playback != nil {
		next.IsPlaying = a.playback.IsPlaying
	}
	next.CurrentTime = atTime
	switch action {
	case ActionPlay:
		next.IsPlaying = true
	case ActionPause:
		next.IsPlaying = false
	}

	status := a.record.Status
	startedAt := int64(0)
	if status == room.StatusScheduled {
		status = room.StatusLive
	}
	if action == ActionPlay && a.record.StartedAt == 0 {
		startedAt = now.UnixMilli()
	}

	if status != a.record.Status || startedAt != 0 {
		if err := a.s.roomRepo.UpdateRoomStatus(ctx, &room.UpdateRoomStatusParams{
			RoomId:    a.id,
			Status:    status,
			StartedAt: startedAt,
		}); err != nil {
			return fmt.Errorf("failed to update room status: %w", err)
		}
	}

	if err := a.s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
		RoomId:      a.id,
		CurrentTime: next.CurrentTime,
		IsPlaying:   next.IsPlaying,
		UpdatedAt:   now.UnixMilli(),
	}); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if status != a.record.Status {
		a.logger.InfoContext(ctx, "room is live")
	}
	a.record.Status = status
	if startedAt != 0 {
		a.record.StartedAt = startedAt
	}
	a.playback = &next

	return nil
}

func (a *roomActor) handleRequestSync(cmd requestSyncCmd) (Outcome, error) {
	requester, ok := a.session(cmd.userId, cmd.sessionId)
	if !ok {
		return "", ErrPermissionDenied
	}

	if _, ok := a.syncs[requester.user.Id]; ok {
		return OutcomeApplied, nil
	}

	host, ok := a.host()
	if !ok || host.user.Id == requester.user.Id {
		a.sendFallbackSync(requester)
		return OutcomeApplied, nil
	}

	a.syncSeq++
	token := a.syncSeq
	requesterId := requester.user.Id
	a.syncs[requesterId] = &pendingSync{
		token: token,
		timer: a.s.clock.AfterFunc(a.s.syncTimeout, func() {
			a.post(context.Background(), syncTimeoutCmd{requesterId: requesterId, token: token})
		}),
	}
	a.send(host, GetHostTimeEvent{RequesterId: requesterId})

	return OutcomeApplied, nil
}

func (a *roomActor) handleSendHostTime(cmd sendHostTimeCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	if err := validation.Validate(cmd.currentTime, PlayerTimeRule...); err != nil {
		return "", fmt.Errorf("%w: current_time: %w", ErrInvalidInput, err)
	}

	if a.playback != nil {
		a.playback = &PlaybackState{
			CurrentTime:   cmd.currentTime,
			IsPlaying:     cmd.isPlaying,
			LastUpdatedAt: a.s.now(),
		}
	}

	if _, ok := a.syncs[cmd.requesterId]; !ok {
		// answered after timeout or requester left
		return OutcomeApplied, nil
	}
	a.dropSync(cmd.requesterId)

	if requester, ok := a.members[cmd.requesterId]; ok {
		a.send(requester, SyncInitialEvent{
			CurrentTime: cmd.currentTime,
			IsPlaying:   cmd.isPlaying,
		})
	}

	return OutcomeApplied, nil
}

func (a *roomActor) handleSyncTimeout(cmd syncTimeoutCmd) {
	pending, ok := a.syncs[cmd.requesterId]
	if !ok || pending.token != cmd.token {
		return
	}
	delete(a.syncs, cmd.requesterId)

	if requester, ok := a.members[cmd.requesterId]; ok {
		a.logger.Warn("host did not answer sync in time", "user_id", cmd.requesterId)
		a.sendFallbackSync(requester)
	}
}

func (a *roomActor) sendFallbackSync(requester *memberSession) {
	event := SyncInitialEvent{}
	if a.playback != nil {
		event.CurrentTime = a.playback.At(a.s.now())
		event.IsPlaying = a.playback.IsPlaying
	}

	a.send(requester, event)
}

func (a *roomActor) dropSync(requesterId string) {
	if pending, ok := a.syncs[requesterId]; ok {
		pending.timer.Stop()
		delete(a.syncs, requesterId)
	}
}

func (a *roomActor) resolveSyncsByFallback() {
	for requesterId := range a.syncs {
		a.dropSync(requesterId)
		if requester, ok := a.members[requesterId]; ok {
			a.sendFallbackSync(requester)
		}
	}
}

func (a *roomActor) handlePollSchedule(cmd pollScheduleCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	now := a.s.now()
	if a.record.Status != room.StatusScheduled ||
		a.record.ScheduledAt == 0 ||
		now.UnixMilli() < a.record.ScheduledAt ||
		(a.playback != nil && a.playback.IsPlaying) {
		return OutcomeNotDue, nil
	}

	if err := a.applyHostAction(cmd.ctx, ActionPlay, 0); err != nil {
		return "", err
	}

	a.logger.InfoContext(cmd.ctx, "scheduled start reached")
	a.broadcast(SyncPlayerEvent{Action: ActionPlay, CurrentTime: 0})

	return OutcomeApplied, nil
}
