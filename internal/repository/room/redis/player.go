package redis

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) SetPlayer(ctx context.Context, params *room.SetPlayerParams) error {
	pipe := r.rc.TxPipeline()

	playerKey := r.getPlayerKey(params.RoomId)
	r.hSetStruct(ctx, pipe, playerKey, room.Player{
		CurrentTime: params.CurrentTime,
		IsPlaying:   params.IsPlaying,
		UpdatedAt:   params.UpdatedAt,
	})
	r.expireRoom(ctx, pipe, params.RoomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (r repo) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	res := r.rc.HGetAll(ctx, r.getPlayerKey(roomId))
	fields, err := res.Result()
	if err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(fields) == 0 {
		return room.Player{}, room.ErrPlayerNotFound
	}

	var player room.Player
	if err := res.Scan(&player); err != nil {
		return room.Player{}, fmt.Errorf("failed to scan player: %w", err)
	}

	return player, nil
}

func (r repo) RemovePlayer(ctx context.Context, roomId string) error {
	if err := r.rc.Del(ctx, r.getPlayerKey(roomId)).Err(); err != nil {
		return fmt.Errorf("failed to remove player: %w", err)
	}

	return nil
}
