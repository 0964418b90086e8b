package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.RoomId)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if exists > 0 {
		return room.ErrRoomAlreadyExists
	}

	pipe := r.rc.TxPipeline()
	r.hSetStruct(ctx, pipe, roomKey, room.Room{
		Title:       params.Title,
		HostUserId:  params.HostUserId,
		IsPrivate:   params.IsPrivate,
		JoinCode:    params.JoinCode,
		Status:      params.Status,
		ScheduledAt: params.ScheduledAt,
		CreatedAt:   params.CreatedAt,
	})
	pipe.Expire(ctx, roomKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	res := r.rc.HGetAll(ctx, r.getRoomKey(roomId))
	fields, err := res.Result()
	if err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if len(fields) == 0 {
		return room.Room{}, room.ErrRoomNotFound
	}

	var rm room.Room
	if err := res.Scan(&rm); err != nil {
		return room.Room{}, fmt.Errorf("failed to scan room: %w", err)
	}

	return rm, nil
}

func (r repo) updateRoomFields(ctx context.Context, roomId string, fields map[string]any) error {
	roomKey := r.getRoomKey(roomId)

	exists, err := r.rc.Exists(ctx, roomKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if exists == 0 {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, fields)
	r.expireRoom(ctx, pipe, roomId)

	return r.executePipe(ctx, pipe)
}

func (r repo) UpdateRoomHost(ctx context.Context, roomId, hostUserId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "host_user_id", hostUserId)
	if err := r.updateRoomFields(ctx, roomId, map[string]any{
		"host_user_id": hostUserId,
		"host_left":    false,
	}); err != nil {
		return fmt.Errorf("failed to update room host: %w", err)
	}

	return nil
}

func (r repo) SetHostLeft(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if err := r.updateRoomFields(ctx, roomId, map[string]any{
		"host_left": true,
	}); err != nil {
		return fmt.Errorf("failed to set host left: %w", err)
	}

	return nil
}

func (r repo) UpdateRoomStatus(ctx context.Context, params *room.UpdateRoomStatusParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	fields := map[string]any{
		"status": string(params.Status),
	}
	if params.StartedAt != 0 {
		fields["started_at"] = params.StartedAt
	}
	if params.EndedAt != 0 {
		fields["ended_at"] = params.EndedAt
	}

	if err := r.updateRoomFields(ctx, params.RoomId, fields); err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}

	return nil
}
