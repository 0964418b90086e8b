package service

// Event is a message sent from a room to a session. The set is closed.
type Event interface {
	Type() string
	isEvent()
}

type JoinedEvent struct {
	Room         Room          `json:"room"`
	Self         Member        `json:"self"`
	Members      []Member      `json:"members"`
	Playback     *Playback     `json:"playback"`
	Messages     []ChatMessage `json:"messages"`
	JoinRequests []JoinRequest `json:"join_requests,omitempty"`
}

type JoinPendingEvent struct {
	RoomId string `json:"room_id"`
	Self   Member `json:"self"`
}

type JoinAcceptedEvent struct {
	RoomId string `json:"room_id"`
}

type JoinRejectedEvent struct {
	RoomId string `json:"room_id"`
}

type HostReceiveJoinRequestEvent struct {
	JoinRequest
}

type JoinRequestCancelledEvent struct {
	UserId string `json:"user_id"`
}

type MemberListChangedEvent struct {
	Members    []Member `json:"members"`
	HostUserId string   `json:"host_user_id"`
}

type HostTransferredEvent struct {
	HostUserId         string `json:"host_user_id"`
	PreviousHostUserId string `json:"previous_host_user_id"`
}

type KickedEvent struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
	Member Member `json:"member"`
}

type BannedEvent struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
	Member Member `json:"member"`
}

type RoomEndedEvent struct {
	RoomId  string `json:"room_id"`
	EndedAt int64  `json:"ended_at"`
}

type SyncPlayerEvent struct {
	Action      PlayerAction `json:"action"`
	CurrentTime float64      `json:"current_time"`
}

type GetHostTimeEvent struct {
	RequesterId string `json:"requester_id"`
}

type SyncInitialEvent struct {
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
}

type NewMessageEvent struct {
	ChatMessage
}

type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (JoinedEvent) Type() string                 { return "joined" }
func (JoinPendingEvent) Type() string            { return "join_pending" }
func (JoinAcceptedEvent) Type() string           { return "join_accepted" }
func (JoinRejectedEvent) Type() string           { return "join_rejected" }
func (HostReceiveJoinRequestEvent) Type() string { return "host_receive_join_request" }
func (JoinRequestCancelledEvent) Type() string   { return "join_request_cancelled" }
func (MemberListChangedEvent) Type() string      { return "member_list_changed" }
func (HostTransferredEvent) Type() string        { return "host_transferred" }
func (KickedEvent) Type() string                 { return "kicked" }
func (BannedEvent) Type() string                 { return "banned" }
func (RoomEndedEvent) Type() string              { return "room_ended" }
func (SyncPlayerEvent) Type() string             { return "sync_player" }
func (GetHostTimeEvent) Type() string            { return "get_host_time" }
func (SyncInitialEvent) Type() string            { return "sync_initial" }
func (NewMessageEvent) Type() string             { return "new_message" }
func (ErrorEvent) Type() string                  { return "error" }

func (JoinedEvent) isEvent()                 {}
func (JoinPendingEvent) isEvent()            {}
func (JoinAcceptedEvent) isEvent()           {}
func (JoinRejectedEvent) isEvent()           {}
func (HostReceiveJoinRequestEvent) isEvent() {}
func (JoinRequestCancelledEvent) isEvent()   {}
func (MemberListChangedEvent) isEvent()      {}
func (HostTransferredEvent) isEvent()        {}
func (KickedEvent) isEvent()                 {}
func (BannedEvent) isEvent()                 {}
func (RoomEndedEvent) isEvent()              {}
func (SyncPlayerEvent) isEvent()             {}
func (GetHostTimeEvent) isEvent()            {}
func (SyncInitialEvent) isEvent()            {}
func (NewMessageEvent) isEvent()             {}
func (ErrorEvent) isEvent()                  {}
