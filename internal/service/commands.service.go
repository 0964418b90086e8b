package service

import "context"

// command is processed by the room actor. The set is closed.
type command interface {
	isCommand()
}

type result[T any] struct {
	val T
	err error
}

type reply[T any] chan result[T]

func newReply[T any]() reply[T] {
	return make(reply[T], 1)
}

func (r reply[T]) send(val T, err error) {
	r <- result[T]{val: val, err: err}
}

// origin identifies the session a command came from.
type origin struct {
	ctx       context.Context
	userId    string
	sessionId string
}

type joinCmd struct {
	ctx    context.Context
	user   User
	code   string
	sender Sender
	reply  reply[JoinResult]
}

type leaveCmd struct {
	origin
}

type kickCmd struct {
	origin
	targetId string
	reply    reply[Outcome]
}

type banCmd struct {
	origin
	targetId string
	reply    reply[Outcome]
}

type unbanCmd struct {
	origin
	targetId string
	reply    reply[Outcome]
}

type acceptJoinCmd struct {
	origin
	targetId string
	reply    reply[Outcome]
}

type rejectJoinCmd struct {
	origin
	targetId string
	reply    reply[Outcome]
}

type transferHostCmd struct {
	origin
	newHostId string
	reply     reply[Outcome]
}

type endRoomCmd struct {
	origin
	reply reply[Outcome]
}

type hostActionCmd struct {
	origin
	action PlayerAction
	atTime float64
	reply  reply[Outcome]
}

type requestSyncCmd struct {
	origin
	reply reply[Outcome]
}

type sendHostTimeCmd struct {
	origin
	requesterId string
	currentTime float64
	isPlaying   bool
	reply       reply[Outcome]
}

type pollScheduleCmd struct {
	origin
	reply reply[Outcome]
}

type sendMessageCmd struct {
	origin
	text  string
	reply reply[ChatMessage]
}

type getStateCmd struct {
	reply reply[RoomState]
}

type syncTimeoutCmd struct {
	requesterId string
	token       uint64
}

type idleTimeoutCmd struct{}

func (joinCmd) isCommand()         {}
func (leaveCmd) isCommand()        {}
func (kickCmd) isCommand()         {}
func (banCmd) isCommand()          {}
func (unbanCmd) isCommand()        {}
func (acceptJoinCmd) isCommand()   {}
func (rejectJoinCmd) isCommand()   {}
func (transferHostCmd) isCommand() {}
func (endRoomCmd) isCommand()      {}
func (hostActionCmd) isCommand()   {}
func (requestSyncCmd) isCommand()  {}
func (sendHostTimeCmd) isCommand() {}
func (pollScheduleCmd) isCommand() {}
func (sendMessageCmd) isCommand()  {}
func (getStateCmd) isCommand()     {}
func (syncTimeoutCmd) isCommand()  {}
func (idleTimeoutCmd) isCommand()  {}

// request posts cmd and waits for the actor to answer on r.
func request[T any](ctx context.Context, a *roomActor, cmd command, r reply[T]) (T, error) {
	var zero T
	if err := a.post(ctx, cmd); err != nil {
		return zero, err
	}

	select {
	case res := <-r:
		return res.val, res.err
	case <-a.done:
		// the actor may have answered right before exiting
		select {
		case res := <-r:
			return res.val, res.err
		default:
		}

		return zero, ErrRoomClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
