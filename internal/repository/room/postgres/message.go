package postgres

import (
	"context"
	"fmt"

	"github.com/sharetube/watchparty/internal/repository/room"
)

// AddMessage appends a message. Limit is ignored, the table keeps full history.
func (r *repo) AddMessage(ctx context.Context, params *room.AddMessageParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	msg := params.Message
	if _, err := r.conn.ExecContext(ctx,
		"INSERT INTO chat_messages (id, room_id, user_id, display_name, text, is_host, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		msg.Id,
		msg.RoomId,
		msg.UserId,
		msg.DisplayName,
		msg.Text,
		msg.IsHost,
		msg.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return nil
}

// GetMessages returns up to limit most recent messages in send order.
func (r *repo) GetMessages(ctx context.Context, roomId string, limit int) ([]room.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.QueryContext(ctx,
		"SELECT id, room_id, user_id, display_name, text, is_host, created_at FROM ("+
			"SELECT * FROM chat_messages WHERE room_id = $1 ORDER BY seq_id DESC LIMIT $2"+
			") AS recent ORDER BY seq_id ASC",
		roomId,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]room.Message, 0, limit)
	for rows.Next() {
		var msg room.Message
		if err := rows.Scan(
			&msg.Id,
			&msg.RoomId,
			&msg.UserId,
			&msg.DisplayName,
			&msg.Text,
			&msg.IsHost,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}
