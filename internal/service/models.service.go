package service

import (
	"time"

	"github.com/sharetube/watchparty/internal/repository/room"
)

type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

type ConnectionState string

const (
	ConnectionConnected    ConnectionState = "connected"
	ConnectionPending      ConnectionState = "pending"
	ConnectionDisconnected ConnectionState = "disconnected"
)

type Admission string

const (
	AdmissionAdmitted Admission = "admitted"
	AdmissionPending  Admission = "pending"
	AdmissionRejected Admission = "rejected"
)

// Outcome of a command that was authorized. No-op outcomes are not errors.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeAlreadyBanned Outcome = "already_banned"
	OutcomeAlreadyHost   Outcome = "already_host"
	OutcomeNotBanned     Outcome = "not_banned"
	OutcomeNotDue        Outcome = "not_due"
)

type PlayerAction string

const (
	ActionPlay  PlayerAction = "play"
	ActionPause PlayerAction = "pause"
	ActionSeek  PlayerAction = "seek"
)

// User is the identity carried by an auth token.
type User struct {
	Id          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
}

type Member struct {
	UserId          string          `json:"user_id"`
	DisplayName     string          `json:"display_name"`
	AvatarRef       string          `json:"avatar_ref"`
	Role            Role            `json:"role"`
	ConnectionState ConnectionState `json:"connection_state"`
	IsBanned        bool            `json:"is_banned"`
	ConnectedAt     int64           `json:"connected_at"`
}

type JoinRequest struct {
	UserId      string `json:"user_id"`
	RoomId      string `json:"room_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref"`
	IsBanned    bool   `json:"is_banned"`
	RequestedAt int64  `json:"requested_at"`
}

type JoinResult struct {
	Admission Admission
	SessionId string
	// Set when Admission is rejected.
	Reason error
}

type PlaybackState struct {
	CurrentTime   float64
	IsPlaying     bool
	LastUpdatedAt time.Time
}

// At extrapolates the playback position to now.
func (p PlaybackState) At(now time.Time) float64 {
	if !p.IsPlaying {
		return p.CurrentTime
	}

	elapsed := now.Sub(p.LastUpdatedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	return p.CurrentTime + elapsed
}

type Playback struct {
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
	UpdatedAt   int64   `json:"updated_at"`
}

func (p PlaybackState) snapshot(now time.Time) Playback {
	return Playback{
		CurrentTime: p.At(now),
		IsPlaying:   p.IsPlaying,
		UpdatedAt:   now.UnixMilli(),
	}
}

type ChatMessage struct {
	Id          string `json:"id"`
	RoomId      string `json:"room_id"`
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	IsHost      bool   `json:"is_host"`
	CreatedAt   int64  `json:"created_at"`
}

func chatMessageFromRecord(m room.Message) ChatMessage {
	return ChatMessage{
		Id:          m.Id,
		RoomId:      m.RoomId,
		UserId:      m.UserId,
		DisplayName: m.DisplayName,
		Text:        m.Text,
		IsHost:      m.IsHost,
		CreatedAt:   m.CreatedAt,
	}
}

type Room struct {
	Id          string `json:"id"`
	Title       string `json:"title"`
	HostUserId  string `json:"host_user_id"`
	IsPrivate   bool   `json:"is_private"`
	JoinCode    string `json:"join_code,omitempty"`
	Status      string `json:"status"`
	ScheduledAt int64  `json:"scheduled_at,omitempty"`
	StartedAt   int64  `json:"started_at,omitempty"`
	EndedAt     int64  `json:"ended_at,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// roomFromRecord hides the join code unless withCode is set.
func roomFromRecord(id string, r room.Room, withCode bool) Room {
	res := Room{
		Id:          id,
		Title:       r.Title,
		HostUserId:  r.HostUserId,
		IsPrivate:   r.IsPrivate,
		Status:      string(r.Status),
		ScheduledAt: r.ScheduledAt,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		CreatedAt:   r.CreatedAt,
	}
	if withCode {
		res.JoinCode = r.JoinCode
	}

	return res
}

// RoomState is a point in time view of a loaded room.
type RoomState struct {
	Room         Room          `json:"room"`
	Members      []Member      `json:"members"`
	JoinRequests []JoinRequest `json:"join_requests"`
	Playback     *Playback     `json:"playback"`
}
