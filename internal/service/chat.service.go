package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type SendMessageParams struct {
	SessionParams
	Text string
}

func (s *service) SendMessage(ctx context.Context, params *SendMessageParams) (ChatMessage, error) {
	params.Text = strings.TrimSpace(params.Text)
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.Text, MessageTextRule...),
	); err != nil {
		return ChatMessage{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	a, err := s.activeActor(params.RoomId)
	if err != nil {
		return ChatMessage{}, err
	}

	reply := newReply[ChatMessage]()
	return request(ctx, a, sendMessageCmd{
		origin: params.origin(ctx),
		text:   params.Text,
		reply:  reply,
	}, reply)
}

func (a *roomActor) handleSendMessage(cmd sendMessageCmd) (ChatMessage, error) {
	sender, ok := a.session(cmd.userId, cmd.sessionId)
	if !ok {
		return ChatMessage{}, ErrPermissionDenied
	}

	msg := room.Message{
		Id:          uuid.NewString(),
		RoomId:      a.id,
		UserId:      sender.user.Id,
		DisplayName: sender.user.DisplayName,
		Text:        cmd.text,
		IsHost:      sender.user.Id == a.record.HostUserId,
		CreatedAt:   a.s.now().UnixMilli(),
	}

	if err := a.s.chatRepo.AddMessage(cmd.ctx, &room.AddMessageParams{
		Message: msg,
		Limit:   a.s.chatHistoryLimit,
	}); err != nil {
		return ChatMessage{}, fmt.Errorf("failed to add message: %w", err)
	}

	chatMessage := chatMessageFromRecord(msg)
	a.broadcast(NewMessageEvent{ChatMessage: chatMessage})

	return chatMessage, nil
}

type GetMessagesParams struct {
	RoomId string
	UserId string
	Code   string
	Limit  int
}

// GetMessages returns persisted history. Private rooms require the join
// code unless the caller is the host.
func (s *service) GetMessages(ctx context.Context, params *GetMessagesParams) ([]ChatMessage, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.RoomId, RoomIdRule...),
		validation.Field(&params.Limit, validation.Min(0)),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	record, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}

		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	if record.IsPrivate && params.UserId != record.HostUserId &&
		subtle.ConstantTimeCompare([]byte(params.Code), []byte(record.JoinCode)) != 1 {
		return nil, ErrInvalidCode
	}

	limit := params.Limit
	if limit == 0 || (s.chatHistoryLimit > 0 && limit > s.chatHistoryLimit) {
		limit = s.chatHistoryLimit
	}

	records, err := s.chatRepo.GetMessages(ctx, params.RoomId, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	messages := make([]ChatMessage, 0, len(records))
	for _, m := range records {
		messages = append(messages, chatMessageFromRecord(m))
	}

	return messages, nil
}
