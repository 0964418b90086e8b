package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/watchparty/internal/repository/room"
	"github.com/teris-io/shortid"
)

const joinCodeLength = 6

type CreateRoomParams struct {
	User      User
	Title     string
	IsPrivate bool
	// Generated for private rooms when empty.
	JoinCode    string
	ScheduledAt *time.Time
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (Room, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Title, TitleRule...),
		validation.Field(&params.JoinCode, JoinCodeRule...),
	); err != nil {
		return Room{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := validation.Validate(params.User.Id, UserIdRule...); err != nil {
		return Room{}, fmt.Errorf("%w: user: %w", ErrInvalidInput, err)
	}

	roomId, err := shortid.Generate()
	if err != nil {
		return Room{}, fmt.Errorf("failed to generate room id: %w", err)
	}

	joinCode := params.JoinCode
	if params.IsPrivate && joinCode == "" {
		joinCode = s.generator.GenerateRandomString(joinCodeLength)
	}

	var scheduledAt int64
	if params.ScheduledAt != nil {
		scheduledAt = params.ScheduledAt.UnixMilli()
	}

	setParams := room.SetRoomParams{
		RoomId:      roomId,
		Title:       params.Title,
		HostUserId:  params.User.Id,
		IsPrivate:   params.IsPrivate,
		JoinCode:    joinCode,
		Status:      room.StatusScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.roomRepo.SetRoom(ctx, &setParams); err != nil {
		return Room{}, fmt.Errorf("failed to set room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "is_private", params.IsPrivate)

	return Room{
		Id:          roomId,
		Title:       setParams.Title,
		HostUserId:  setParams.HostUserId,
		IsPrivate:   setParams.IsPrivate,
		JoinCode:    setParams.JoinCode,
		Status:      string(setParams.Status),
		ScheduledAt: setParams.ScheduledAt,
		CreatedAt:   setParams.CreatedAt,
	}, nil
}

// GetRoom returns the registry record. The join code is shown to the host only.
func (s *service) GetRoom(ctx context.Context, roomId, viewerId string) (Room, error) {
	if err := validation.Validate(roomId, RoomIdRule...); err != nil {
		return Room{}, fmt.Errorf("%w: room_id: %w", ErrInvalidInput, err)
	}

	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return Room{}, ErrRoomNotFound
		}

		return Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	return roomFromRecord(roomId, record, viewerId != "" && viewerId == record.HostUserId), nil
}

// GetRoomState loads the room if needed and returns its live state.
func (s *service) GetRoomState(ctx context.Context, roomId string) (RoomState, error) {
	a, err := s.loadActor(ctx, roomId)
	if err != nil {
		return RoomState{}, err
	}

	reply := newReply[RoomState]()
	return request(ctx, a, getStateCmd{reply: reply}, reply)
}

// GetBans lists the users banned from the room. Only the host may read it.
func (s *service) GetBans(ctx context.Context, roomId, userId string) ([]string, error) {
	if err := validation.Validate(roomId, RoomIdRule...); err != nil {
		return nil, fmt.Errorf("%w: room_id: %w", ErrInvalidInput, err)
	}

	record, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if userId == "" || userId != record.HostUserId {
		return nil, ErrPermissionDenied
	}

	bans, err := s.roomRepo.GetBans(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get bans: %w", err)
	}
	if bans == nil {
		bans = []string{}
	}
	slices.Sort(bans)

	return bans, nil
}
