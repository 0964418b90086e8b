package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

func (r repo) getMessagesKey(roomId string) string {
	return "room:" + roomId + ":messages"
}

func (r repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	data, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	messagesKey := r.getMessagesKey(params.Message.RoomId)
	pipe := r.rc.TxPipeline()
	pipe.RPush(ctx, messagesKey, data)
	if params.Limit > 0 {
		pipe.LTrim(ctx, messagesKey, int64(-params.Limit), -1)
	}
	r.expireRoom(ctx, pipe, params.Message.RoomId)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	return nil
}

// GetMessages returns up to limit most recent messages in send order.
func (r repo) GetMessages(ctx context.Context, roomId string, limit int) ([]room.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	res, err := r.rc.LRange(ctx, r.getMessagesKey(roomId), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]room.Message, 0, len(res))
	for _, item := range res {
		var message room.Message
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}
