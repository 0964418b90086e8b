package room

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusEnded     Status = "ended"
)

// Timestamps are unix milliseconds, zero means unset.
type Room struct {
	Title       string `redis:"title"`
	HostUserId  string `redis:"host_user_id"`
	IsPrivate   bool   `redis:"is_private"`
	JoinCode    string `redis:"join_code"`
	Status      Status `redis:"status"`
	ScheduledAt int64  `redis:"scheduled_at"`
	StartedAt   int64  `redis:"started_at"`
	EndedAt     int64  `redis:"ended_at"`
	CreatedAt   int64  `redis:"created_at"`
	// Set when the host left an empty room. The next member to connect
	// takes the role.
	HostLeft bool `redis:"host_left"`
}

type SetRoomParams struct {
	RoomId      string
	Title       string
	HostUserId  string
	IsPrivate   bool
	JoinCode    string
	Status      Status
	ScheduledAt int64
	CreatedAt   int64
}

type UpdateRoomStatusParams struct {
	RoomId string
	Status Status
	// Zero leaves the stored value untouched.
	StartedAt int64
	EndedAt   int64
}
