package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type memberSession struct {
	user        User
	sessionId   string
	sender      Sender
	connectedAt time.Time
	// join order, lower is longer connected
	seq uint64
	// admitted by the host despite a ban
	isBanned bool
}

type pendingJoin struct {
	user        User
	sessionId   string
	sender      Sender
	isBanned    bool
	requestedAt time.Time
}

type pendingSync struct {
	token uint64
	timer *clock.Timer
}

// roomActor owns all mutable state of one room. Every field below is
// accessed only from the run goroutine.
type roomActor struct {
	id     string
	s      *service
	logger *slog.Logger

	record   room.Room
	members  map[string]*memberSession
	pending  map[string]*pendingJoin
	playback *PlaybackState
	syncs    map[string]*pendingSync

	memberSeq uint64
	syncSeq   uint64
	killTimer *clock.Timer

	inbox    chan command
	done     chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

func newRoomActor(s *service, id string, record room.Room, playback *PlaybackState) *roomActor {
	return &roomActor{
		id:       id,
		s:        s,
		logger:   s.logger.With("room_id", id),
		record:   record,
		members:  make(map[string]*memberSession),
		pending:  make(map[string]*pendingJoin),
		playback: playback,
		syncs:    make(map[string]*pendingSync),
		inbox:    make(chan command),
		done:     make(chan struct{}),
		quit:     make(chan struct{}),
	}
}

func (a *roomActor) run() {
	a.logger.Info("room loaded")
	a.resetKillTimer()

	for {
		select {
		case cmd := <-a.inbox:
			if exit := a.handle(cmd); exit {
				a.exit("")
				return
			}
		case <-a.quit:
			a.exit("server shutting down")
			return
		}
	}
}

// post hands cmd to the actor. It fails once the actor has exited.
func (a *roomActor) post(ctx context.Context, cmd command) error {
	select {
	case a.inbox <- cmd:
		return nil
	case <-a.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *roomActor) stop() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// handle reports whether the actor must exit.
func (a *roomActor) handle(cmd command) bool {
	switch c := cmd.(type) {
	case joinCmd:
		c.reply.send(a.handleJoin(c))
	case leaveCmd:
		a.handleLeave(c)
	case kickCmd:
		c.reply.send(a.handleKick(c))
	case banCmd:
		c.reply.send(a.handleBan(c))
	case unbanCmd:
		c.reply.send(a.handleUnban(c))
	case acceptJoinCmd:
		c.reply.send(a.handleAcceptJoin(c))
	case rejectJoinCmd:
		c.reply.send(a.handleRejectJoin(c))
	case transferHostCmd:
		c.reply.send(a.handleTransferHost(c))
	case endRoomCmd:
		outcome, err := a.handleEndRoom(c)
		c.reply.send(outcome, err)
		return err == nil
	case hostActionCmd:
		c.reply.send(a.handleHostAction(c))
	case requestSyncCmd:
		c.reply.send(a.handleRequestSync(c))
	case sendHostTimeCmd:
		c.reply.send(a.handleSendHostTime(c))
	case pollScheduleCmd:
		c.reply.send(a.handlePollSchedule(c))
	case sendMessageCmd:
		c.reply.send(a.handleSendMessage(c))
	case getStateCmd:
		c.reply.send(a.state(), nil)
	case syncTimeoutCmd:
		a.handleSyncTimeout(c)
	case idleTimeoutCmd:
		if len(a.members) == 0 && len(a.pending) == 0 {
			a.logger.Info("room is idle")
			return true
		}
	default:
		a.logger.Error("unknown command", "command", cmd)
	}

	return false
}

func (a *roomActor) exit(reason string) {
	if a.killTimer != nil {
		a.killTimer.Stop()
	}

	for requesterId := range a.syncs {
		a.dropSync(requesterId)
	}

	if reason != "" {
		for _, m := range a.members {
			m.sender.Close(reason)
		}
		for _, p := range a.pending {
			p.sender.Close(reason)
		}
	}

	a.s.removeActor(a)
	close(a.done)
	a.logger.Info("room unloaded")
}

func (a *roomActor) resetKillTimer() {
	if a.killTimer != nil {
		a.killTimer.Stop()
		a.killTimer = nil
	}

	if len(a.members) > 0 || len(a.pending) > 0 || a.s.idleRoomTimeout <= 0 {
		return
	}

	a.killTimer = a.s.clock.AfterFunc(a.s.idleRoomTimeout, func() {
		a.post(context.Background(), idleTimeoutCmd{})
	})
}

// session returns the member only when sessionId is its current session.
func (a *roomActor) session(userId, sessionId string) (*memberSession, bool) {
	m, ok := a.members[userId]
	if !ok || m.sessionId != sessionId {
		return nil, false
	}

	return m, true
}

func (a *roomActor) host() (*memberSession, bool) {
	m, ok := a.members[a.record.HostUserId]
	return m, ok
}

func (a *roomActor) isHostSession(o origin) bool {
	m, ok := a.session(o.userId, o.sessionId)
	return ok && m.user.Id == a.record.HostUserId
}

func (a *roomActor) sortedMembers() []*memberSession {
	members := make([]*memberSession, 0, len(a.members))
	for _, m := range a.members {
		members = append(members, m)
	}
	slices.SortFunc(members, func(x, y *memberSession) int {
		return cmp.Compare(x.seq, y.seq)
	})

	return members
}

func (a *roomActor) member(m *memberSession) Member {
	role := RoleGuest
	if m.user.Id == a.record.HostUserId {
		role = RoleHost
	}

	return Member{
		UserId:          m.user.Id,
		DisplayName:     m.user.DisplayName,
		AvatarRef:       m.user.AvatarRef,
		Role:            role,
		ConnectionState: ConnectionConnected,
		IsBanned:        m.isBanned,
		ConnectedAt:     m.connectedAt.UnixMilli(),
	}
}

// disconnectedMember describes a member removed from the room.
func (a *roomActor) disconnectedMember(m *memberSession, banned bool) Member {
	member := a.member(m)
	member.ConnectionState = ConnectionDisconnected
	member.IsBanned = banned

	return member
}

func (a *roomActor) pendingMember(p *pendingJoin) Member {
	return Member{
		UserId:          p.user.Id,
		DisplayName:     p.user.DisplayName,
		AvatarRef:       p.user.AvatarRef,
		Role:            RoleGuest,
		ConnectionState: ConnectionPending,
		IsBanned:        p.isBanned,
	}
}

func (a *roomActor) memberList() []Member {
	members := make([]Member, 0, len(a.members))
	for _, m := range a.sortedMembers() {
		members = append(members, a.member(m))
	}

	return members
}

func (a *roomActor) joinRequest(p *pendingJoin) JoinRequest {
	return JoinRequest{
		UserId:      p.user.Id,
		RoomId:      a.id,
		DisplayName: p.user.DisplayName,
		AvatarRef:   p.user.AvatarRef,
		IsBanned:    p.isBanned,
		RequestedAt: p.requestedAt.UnixMilli(),
	}
}

func (a *roomActor) joinRequests() []JoinRequest {
	requests := make([]JoinRequest, 0, len(a.pending))
	for _, p := range a.pending {
		requests = append(requests, a.joinRequest(p))
	}
	slices.SortFunc(requests, func(x, y JoinRequest) int {
		return cmp.Compare(x.RequestedAt, y.RequestedAt)
	})

	return requests
}

func (a *roomActor) playbackSnapshot() *Playback {
	if a.playback == nil {
		return nil
	}

	snapshot := a.playback.snapshot(a.s.now())
	return &snapshot
}

func (a *roomActor) state() RoomState {
	return RoomState{
		Room:         roomFromRecord(a.id, a.record, false),
		Members:      a.memberList(),
		JoinRequests: a.joinRequests(),
		Playback:     a.playbackSnapshot(),
	}
}

func (a *roomActor) send(m *memberSession, event Event) {
	if !m.sender.Send(event) {
		a.logger.Warn("failed to queue event", "user_id", m.user.Id, "event", event.Type())
	}
}

func (a *roomActor) broadcast(event Event) {
	for _, m := range a.sortedMembers() {
		a.send(m, event)
	}
}

func (a *roomActor) broadcastExcept(userId string, event Event) {
	for _, m := range a.sortedMembers() {
		if m.user.Id != userId {
			a.send(m, event)
		}
	}
}

func (a *roomActor) broadcastMemberList() {
	a.broadcast(MemberListChangedEvent{
		Members:    a.memberList(),
		HostUserId: a.record.HostUserId,
	})
}
