package redis

import (
	"context"
	"fmt"
)

func (r repo) getBansKey(roomId string) string {
	return "room:" + roomId + ":bans"
}

// AddBan reports whether the user was not banned before.
func (r repo) AddBan(ctx context.Context, roomId, userId string) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "user_id", userId)
	bansKey := r.getBansKey(roomId)

	pipe := r.rc.TxPipeline()
	added := pipe.SAdd(ctx, bansKey, userId)
	r.expireRoom(ctx, pipe, roomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		return false, fmt.Errorf("failed to add ban: %w", err)
	}

	return added.Val() > 0, nil
}

// RemoveBan reports whether the user was banned.
func (r repo) RemoveBan(ctx context.Context, roomId, userId string) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId, "user_id", userId)
	res, err := r.rc.SRem(ctx, r.getBansKey(roomId), userId).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove ban: %w", err)
	}

	return res > 0, nil
}

func (r repo) IsBanned(ctx context.Context, roomId, userId string) (bool, error) {
	banned, err := r.rc.SIsMember(ctx, r.getBansKey(roomId), userId).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check ban: %w", err)
	}

	return banned, nil
}

func (r repo) GetBans(ctx context.Context, roomId string) ([]string, error) {
	bans, err := r.rc.SMembers(ctx, r.getBansKey(roomId)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bans: %w", err)
	}

	return bans, nil
}
