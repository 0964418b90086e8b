package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type JoinParams struct {
	RoomId string
	User   User
	Code   string
	Sender Sender
}

// Join admits, queues or rejects a new session of params.User.
func (s *service) Join(ctx context.Context, params *JoinParams) (JoinResult, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Sender, validation.Required),
	); err != nil {
		return JoinResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := validation.ValidateStructWithContext(ctx, &params.User,
		validation.Field(&params.User.Id, UserIdRule...),
		validation.Field(&params.User.DisplayName, DisplayNameRule...),
	); err != nil {
		return JoinResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// the room may unload between lookup and post
	for attempt := 0; ; attempt++ {
		a, err := s.loadActor(ctx, params.RoomId)
		if err != nil {
			return JoinResult{}, err
		}

		reply := newReply[JoinResult]()
		res, err := request(ctx, a, joinCmd{
			ctx:    ctx,
			user:   params.User,
			code:   params.Code,
			sender: params.Sender,
			reply:  reply,
		}, reply)
		if errors.Is(err, ErrRoomClosed) && attempt < 3 {
			continue
		}

		return res, err
	}
}

type SessionParams struct {
	RoomId    string
	UserId    string
	SessionId string
}

func (p *SessionParams) origin(ctx context.Context) origin {
	return origin{
		ctx:       ctx,
		userId:    p.UserId,
		sessionId: p.SessionId,
	}
}

// Leave removes the session from the room. Stale sessions are ignored.
func (s *service) Leave(ctx context.Context, params *SessionParams) error {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return err
	}

	if err := a.post(ctx, leaveCmd{origin: params.origin(ctx)}); err != nil && !errors.Is(err, ErrRoomClosed) {
		return err
	}

	return nil
}

type TargetParams struct {
	SessionParams
	TargetUserId string
}

func (s *service) targetRequest(ctx context.Context, params *TargetParams, build func(origin, string, reply[Outcome]) command) (Outcome, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.TargetUserId, UserIdRule...),
	); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, build(params.origin(ctx), params.TargetUserId, reply), reply)
}

func (s *service) Kick(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return kickCmd{origin: o, targetId: target, reply: r}
	})
}

func (s *service) Ban(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return banCmd{origin: o, targetId: target, reply: r}
	})
}

func (s *service) Unban(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return unbanCmd{origin: o, targetId: target, reply: r}
	})
}

func (s *service) AcceptJoin(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return acceptJoinCmd{origin: o, targetId: target, reply: r}
	})
}

func (s *service) RejectJoin(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return rejectJoinCmd{origin: o, targetId: target, reply: r}
	})
}

func (s *service) TransferHost(ctx context.Context, params *TargetParams) (Outcome, error) {
	return s.targetRequest(ctx, params, func(o origin, target string, r reply[Outcome]) command {
		return transferHostCmd{origin: o, newHostId: target, reply: r}
	})
}

func (s *service) EndRoom(ctx context.Context, params *SessionParams) (Outcome, error) {
	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return "", err
	}

	reply := newReply[Outcome]()
	return request(ctx, a, endRoomCmd{origin: params.origin(ctx), reply: reply}, reply)
}

func (a *roomActor) handleJoin(cmd joinCmd) (JoinResult, error) {
	ctx := cmd.ctx
	user := cmd.user
	sessionId := uuid.NewString()
	isRecordedHost := user.Id == a.record.HostUserId

	if a.record.IsPrivate && !isRecordedHost &&
		subtle.ConstantTimeCompare([]byte(cmd.code), []byte(a.record.JoinCode)) != 1 {
		return JoinResult{Admission: AdmissionRejected, Reason: ErrInvalidCode}, nil
	}

	if old, ok := a.members[user.Id]; ok {
		old.sender.Close("session replaced")
		old.user = user
		old.sessionId = sessionId
		old.sender = cmd.sender
		a.logger.InfoContext(ctx, "session replaced", "user_id", user.Id)
		a.sendJoined(ctx, old)

		return JoinResult{Admission: AdmissionAdmitted, SessionId: sessionId}, nil
	}

	if old, ok := a.pending[user.Id]; ok {
		old.sender.Close("session replaced")
		old.sessionId = sessionId
		old.sender = cmd.sender
		cmd.sender.Send(JoinPendingEvent{RoomId: a.id, Self: a.pendingMember(old)})

		return JoinResult{Admission: AdmissionPending, SessionId: sessionId}, nil
	}

	banned, err := a.s.roomRepo.IsBanned(ctx, a.id, user.Id)
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to check ban: %w", err)
	}

	if banned {
		p := &pendingJoin{
			user:        user,
			sessionId:   sessionId,
			sender:      cmd.sender,
			isBanned:    true,
			requestedAt: a.s.now(),
		}
		a.pending[user.Id] = p
		a.resetKillTimer()
		cmd.sender.Send(JoinPendingEvent{RoomId: a.id, Self: a.pendingMember(p)})
		if host, ok := a.host(); ok {
			a.send(host, HostReceiveJoinRequestEvent{JoinRequest: a.joinRequest(p)})
		}
		a.logger.InfoContext(ctx, "join pending", "user_id", user.Id)

		return JoinResult{Admission: AdmissionPending, SessionId: sessionId}, nil
	}

	if a.isFull() && !isRecordedHost {
		return JoinResult{Admission: AdmissionRejected, Reason: ErrRoomFull}, nil
	}

	if err := a.admit(ctx, user, sessionId, cmd.sender, false); err != nil {
		return JoinResult{}, err
	}

	return JoinResult{Admission: AdmissionAdmitted, SessionId: sessionId}, nil
}

func (a *roomActor) isFull() bool {
	return a.s.membersLimit > 0 && len(a.members) >= a.s.membersLimit
}

// admit connects the session. A room whose host left it empty gives the
// role to the first member to connect. A host that has not arrived yet
// keeps it.
func (a *roomActor) admit(ctx context.Context, user User, sessionId string, sender Sender, banned bool) error {
	if _, ok := a.host(); !ok && a.record.HostLeft {
		if err := a.s.roomRepo.UpdateRoomHost(ctx, a.id, user.Id); err != nil {
			return fmt.Errorf("failed to update room host: %w", err)
		}
		a.record.HostUserId = user.Id
		a.record.HostLeft = false
	}

	a.memberSeq++
	m := &memberSession{
		user:        user,
		sessionId:   sessionId,
		sender:      sender,
		connectedAt: a.s.now(),
		seq:         a.memberSeq,
		isBanned:    banned,
	}
	a.members[user.Id] = m
	a.resetKillTimer()
	a.logger.InfoContext(ctx, "member joined", "user_id", user.Id, "members", len(a.members))

	a.sendJoined(ctx, m)
	a.broadcastExcept(user.Id, MemberListChangedEvent{
		Members:    a.memberList(),
		HostUserId: a.record.HostUserId,
	})

	return nil
}

func (a *roomActor) sendJoined(ctx context.Context, m *memberSession) {
	isHost := m.user.Id == a.record.HostUserId

	messages := []ChatMessage{}
	if a.s.chatHistoryLimit > 0 {
		history, err := a.s.chatRepo.GetMessages(ctx, a.id, a.s.chatHistoryLimit)
		if err != nil {
			a.logger.ErrorContext(ctx, "failed to get chat history", "error", err)
		}
		for _, msg := range history {
			messages = append(messages, chatMessageFromRecord(msg))
		}
	}

	event := JoinedEvent{
		Room:     roomFromRecord(a.id, a.record, isHost),
		Self:     a.member(m),
		Members:  a.memberList(),
		Playback: a.playbackSnapshot(),
		Messages: messages,
	}
	if isHost {
		event.JoinRequests = a.joinRequests()
	}

	a.send(m, event)
}

func (a *roomActor) handleLeave(cmd leaveCmd) {
	if p, ok := a.pending[cmd.userId]; ok && p.sessionId == cmd.sessionId {
		delete(a.pending, cmd.userId)
		p.sender.Close("left")
		if host, ok := a.host(); ok {
			a.send(host, JoinRequestCancelledEvent{UserId: cmd.userId})
		}
		a.resetKillTimer()
		return
	}

	m, ok := a.session(cmd.userId, cmd.sessionId)
	if !ok {
		return
	}

	m.sender.Close("left")
	a.removeMember(cmd.ctx, m)
}

// removeMember drops a connected member and keeps exactly one host while
// anyone remains.
func (a *roomActor) removeMember(ctx context.Context, m *memberSession) {
	delete(a.members, m.user.Id)
	a.dropSync(m.user.Id)
	a.logger.InfoContext(ctx, "member left", "user_id", m.user.Id, "members", len(a.members))

	if m.user.Id == a.record.HostUserId {
		if next, ok := a.longestConnected(); ok {
			// the live room must keep a host even if persisting fails
			if err := a.s.roomRepo.UpdateRoomHost(ctx, a.id, next.user.Id); err != nil {
				a.logger.ErrorContext(ctx, "failed to persist host", "error", err, "user_id", next.user.Id)
			}
			a.changeHost(ctx, next, m.user.Id)
		} else {
			if err := a.s.roomRepo.SetHostLeft(ctx, a.id); err != nil {
				a.logger.ErrorContext(ctx, "failed to persist host left", "error", err)
			}
			a.record.HostLeft = true
		}
	}

	if len(a.members) > 0 {
		a.broadcastMemberList()
	}

	a.resetKillTimer()
}

func (a *roomActor) longestConnected() (*memberSession, bool) {
	members := a.sortedMembers()
	if len(members) == 0 {
		return nil, false
	}

	return members[0], true
}

// changeHost moves the host role to next. Callers persist it first.
func (a *roomActor) changeHost(ctx context.Context, next *memberSession, previousHostId string) {
	a.record.HostUserId = next.user.Id
	a.logger.InfoContext(ctx, "host changed", "user_id", next.user.Id, "previous_host_user_id", previousHostId)

	a.broadcast(HostTransferredEvent{
		HostUserId:         next.user.Id,
		PreviousHostUserId: previousHostId,
	})

	for _, request := range a.joinRequests() {
		a.send(next, HostReceiveJoinRequestEvent{JoinRequest: request})
	}

	// the previous host can no longer answer
	a.resolveSyncsByFallback()
}

func (a *roomActor) handleKick(cmd kickCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	if cmd.targetId == a.record.HostUserId {
		return "", ErrCannotTargetHost
	}

	target, ok := a.members[cmd.targetId]
	if !ok {
		return "", ErrMemberNotFound
	}

	a.broadcast(KickedEvent{
		RoomId: a.id,
		UserId: target.user.Id,
		Member: a.disconnectedMember(target, target.isBanned),
	})
	target.sender.Close("kicked")
	a.removeMember(cmd.ctx, target)

	return OutcomeApplied, nil
}

func (a *roomActor) handleBan(cmd banCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	if cmd.targetId == a.record.HostUserId {
		return "", ErrCannotTargetHost
	}

	added, err := a.s.roomRepo.AddBan(cmd.ctx, a.id, cmd.targetId)
	if err != nil {
		return "", fmt.Errorf("failed to add ban: %w", err)
	}

	if !added {
		return OutcomeAlreadyBanned, nil
	}

	a.logger.InfoContext(cmd.ctx, "user banned", "user_id", cmd.targetId)
	if target, ok := a.members[cmd.targetId]; ok {
		a.broadcast(BannedEvent{
			RoomId: a.id,
			UserId: target.user.Id,
			Member: a.disconnectedMember(target, true),
		})
		target.sender.Close("banned")
		a.removeMember(cmd.ctx, target)
	}

	return OutcomeApplied, nil
}

func (a *roomActor) handleUnban(cmd unbanCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	removed, err := a.s.roomRepo.RemoveBan(cmd.ctx, a.id, cmd.targetId)
	if err != nil {
		return "", fmt.Errorf("failed to remove ban: %w", err)
	}

	if !removed {
		return OutcomeNotBanned, nil
	}

	if m, ok := a.members[cmd.targetId]; ok && m.isBanned {
		m.isBanned = false
		a.broadcastMemberList()
	}

	return OutcomeApplied, nil
}

func (a *roomActor) handleAcceptJoin(cmd acceptJoinCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	p, ok := a.pending[cmd.targetId]
	if !ok {
		return "", ErrJoinRequestNotFound
	}

	if a.isFull() {
		return "", ErrRoomFull
	}

	delete(a.pending, cmd.targetId)
	p.sender.Send(JoinAcceptedEvent{RoomId: a.id})
	if err := a.admit(cmd.ctx, p.user, p.sessionId, p.sender, p.isBanned); err != nil {
		p.sender.Close("join failed")
		return "", err
	}

	return OutcomeApplied, nil
}

func (a *roomActor) handleRejectJoin(cmd rejectJoinCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	p, ok := a.pending[cmd.targetId]
	if !ok {
		return "", ErrJoinRequestNotFound
	}

	delete(a.pending, cmd.targetId)
	p.sender.Send(JoinRejectedEvent{RoomId: a.id})
	p.sender.Close("join rejected")
	a.resetKillTimer()

	return OutcomeApplied, nil
}

func (a *roomActor) handleTransferHost(cmd transferHostCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	if cmd.newHostId == a.record.HostUserId {
		return OutcomeAlreadyHost, nil
	}

	next, ok := a.members[cmd.newHostId]
	if !ok {
		return "", ErrMemberNotFound
	}

	if err := a.s.roomRepo.UpdateRoomHost(cmd.ctx, a.id, next.user.Id); err != nil {
		return "", fmt.Errorf("failed to update room host: %w", err)
	}

	previousHostId := a.record.HostUserId
	a.changeHost(cmd.ctx, next, previousHostId)
	a.broadcastMemberList()

	return OutcomeApplied, nil
}

func (a *roomActor) handleEndRoom(cmd endRoomCmd) (Outcome, error) {
	if !a.isHostSession(cmd.origin) {
		return "", ErrPermissionDenied
	}

	endedAt := a.s.now().UnixMilli()
	if err := a.s.roomRepo.UpdateRoomStatus(cmd.ctx, &room.UpdateRoomStatusParams{
		RoomId:  a.id,
		Status:  room.StatusEnded,
		EndedAt: endedAt,
	}); err != nil {
		return "", fmt.Errorf("failed to update room status: %w", err)
	}

	if err := a.s.roomRepo.RemovePlayer(cmd.ctx, a.id); err != nil {
		a.logger.ErrorContext(cmd.ctx, "failed to remove player", "error", err)
	}

	a.record.Status = room.StatusEnded
	a.record.EndedAt = endedAt
	a.playback = nil
	a.logger.InfoContext(cmd.ctx, "room ended")

	a.broadcast(RoomEndedEvent{RoomId: a.id, EndedAt: endedAt})
	for _, m := range a.members {
		m.sender.Close("room ended")
	}
	for _, p := range a.pending {
		p.sender.Send(JoinRejectedEvent{RoomId: a.id})
		p.sender.Close("room ended")
	}
	clear(a.members)
	clear(a.pending)

	return OutcomeApplied, nil
}
