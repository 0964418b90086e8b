package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/sharetube/watchparty/pkg/randstr"
)

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrInvalidCode         = errors.New("invalid join code")
	ErrRoomEnded           = errors.New("room ended")
	ErrRoomFull            = errors.New("room is full")
	ErrRoomClosed          = errors.New("room closed")
	ErrJoinRequestNotFound = errors.New("join request not found")
	ErrCannotTargetHost    = errors.New("host cannot be targeted")
	ErrInvalidInput        = errors.New("invalid input")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	UpdateRoomHost(ctx context.Context, roomId string, hostUserId string) error
	SetHostLeft(ctx context.Context, roomId string) error
	UpdateRoomStatus(context.Context, *room.UpdateRoomStatusParams) error
	// bans
	AddBan(ctx context.Context, roomId string, userId string) (bool, error)
	RemoveBan(ctx context.Context, roomId string, userId string) (bool, error)
	IsBanned(ctx context.Context, roomId string, userId string) (bool, error)
	GetBans(ctx context.Context, roomId string) ([]string, error)
	// player
	SetPlayer(context.Context, *room.SetPlayerParams) error
	GetPlayer(ctx context.Context, roomId string) (room.Player, error)
	RemovePlayer(ctx context.Context, roomId string) error
}

type iChatRepo interface {
	AddMessage(context.Context, *room.AddMessageParams) error
	GetMessages(ctx context.Context, roomId string, limit int) ([]room.Message, error)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

// Sender delivers events to one websocket session. Send must not block.
type Sender interface {
	Send(Event) bool
	Close(reason string)
}

type service struct {
	roomRepo         iRoomRepo
	chatRepo         iChatRepo
	generator        iGenerator
	clock            clock.Clock
	logger           *slog.Logger
	secret           []byte
	membersLimit     int
	syncTimeout      time.Duration
	idleRoomTimeout  time.Duration
	chatHistoryLimit int

	mu     sync.Mutex
	rooms  map[string]*roomActor
	closed bool
	wg     sync.WaitGroup
}

type Config struct {
	Secret           string
	MembersLimit     int
	SyncTimeout      time.Duration
	IdleRoomTimeout  time.Duration
	ChatHistoryLimit int
	// Defaults to the wall clock.
	Clock clock.Clock
}

func New(roomRepo iRoomRepo, chatRepo iChatRepo, logger *slog.Logger, cfg *Config) *service {
	joinCodeLetters := []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &service{
		roomRepo:         roomRepo,
		chatRepo:         chatRepo,
		generator:        randstr.New(joinCodeLetters),
		clock:            clk,
		logger:           logger,
		secret:           []byte(cfg.Secret),
		membersLimit:     cfg.MembersLimit,
		syncTimeout:      cfg.SyncTimeout,
		idleRoomTimeout:  cfg.IdleRoomTimeout,
		chatHistoryLimit: cfg.ChatHistoryLimit,
		rooms:            make(map[string]*roomActor),
	}
}

// Close stops every running room and disconnects their sessions.
func (s *service) Close() {
	s.mu.Lock()
	s.closed = true
	actors := make([]*roomActor, 0, len(s.rooms))
	for _, a := range s.rooms {
		actors = append(actors, a)
	}
	s.mu.Unlock()

	for _, a := range actors {
		a.stop()
	}

	s.wg.Wait()
}

func (s *service) activeActor(roomId string) (*roomActor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rooms[roomId]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return a, nil
}

// loadActor returns the running actor of the room, starting one from the
// registry record when the room is not loaded.
func (s *service) loadActor(ctx context.Context, roomId string) (*roomActor, error) {
	if a, err := s.activeActor(roomId); err == nil {
		return a, nil
	}

	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if record.Status == room.StatusEnded {
		return nil, ErrRoomEnded
	}

	var playback *PlaybackState
	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	switch {
	case err == nil:
		playback = &PlaybackState{
			CurrentTime:   player.CurrentTime,
			IsPlaying:     player.IsPlaying,
			LastUpdatedAt: time.UnixMilli(player.UpdatedAt),
		}
	case errors.Is(err, room.ErrPlayerNotFound):
	default:
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrRoomClosed
	}

	if a, ok := s.rooms[roomId]; ok {
		return a, nil
	}

	a := newRoomActor(s, roomId, record, playback)
	s.rooms[roomId] = a
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		a.run()
	}()

	return a, nil
}

func (s *service) removeActor(a *roomActor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rooms[a.id] == a {
		delete(s.rooms, a.id)
	}
}

func (s *service) now() time.Time {
	return s.clock.Now()
}
