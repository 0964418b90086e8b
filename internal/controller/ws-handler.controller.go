package controller

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service"
)

type EmptyInput struct{}

func (c controller) validateInput(input any) error {
	errs, ok := c.validate.Validate(input)
	if ok {
		return nil
	}

	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}

	return fmt.Errorf("%w: %s", service.ErrInvalidInput, strings.Join(messages, "; "))
}

func (c controller) logOutcome(ctx context.Context, outcome service.Outcome) {
	if outcome != service.OutcomeApplied {
		c.logger.InfoContext(ctx, "command had no effect", "outcome", outcome)
	}
}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c controller) handleLeave(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	params := c.getSessionParams(ctx)
	if err := c.roomService.Leave(ctx, &params); err != nil {
		return fmt.Errorf("failed to leave: %w", err)
	}

	return nil
}

type SyncActionInput struct {
	Action      string   `json:"action" validate:"required,oneof=play pause seek"`
	CurrentTime *float64 `json:"current_time" validate:"required,min=0"`
}

func (c controller) handleSyncAction(ctx context.Context, _ *websocket.Conn, input SyncActionInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.HostAction(ctx, &service.HostActionParams{
		SessionParams: c.getSessionParams(ctx),
		Action:        service.PlayerAction(input.Action),
		AtTime:        *input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to apply host action: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

type SeekActionInput struct {
	CurrentTime *float64 `json:"current_time" validate:"required,min=0"`
}

func (c controller) handleSeekAction(ctx context.Context, _ *websocket.Conn, input SeekActionInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.HostAction(ctx, &service.HostActionParams{
		SessionParams: c.getSessionParams(ctx),
		Action:        service.ActionSeek,
		AtTime:        *input.CurrentTime,
	})
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

func (c controller) handleRequestSync(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	params := c.getSessionParams(ctx)
	if _, err := c.roomService.RequestSync(ctx, &params); err != nil {
		return fmt.Errorf("failed to request sync: %w", err)
	}

	return nil
}

type SendHostTimeInput struct {
	RequesterId string   `json:"requester_id" validate:"required"`
	CurrentTime *float64 `json:"current_time" validate:"required,min=0"`
	IsPlaying   bool     `json:"is_playing"`
}

func (c controller) handleSendHostTime(ctx context.Context, _ *websocket.Conn, input SendHostTimeInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.SendHostTime(ctx, &service.SendHostTimeParams{
		SessionParams: c.getSessionParams(ctx),
		RequesterId:   input.RequesterId,
		CurrentTime:   *input.CurrentTime,
		IsPlaying:     input.IsPlaying,
	}); err != nil {
		return fmt.Errorf("failed to send host time: %w", err)
	}

	return nil
}

func (c controller) handlePollSchedule(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	params := c.getSessionParams(ctx)
	if _, err := c.roomService.PollSchedule(ctx, &params); err != nil {
		return fmt.Errorf("failed to poll schedule: %w", err)
	}

	return nil
}

type TargetUserInput struct {
	TargetUserId string `json:"target_user_id" validate:"required"`
}

func (c controller) targetParams(ctx context.Context, targetUserId string) *service.TargetParams {
	return &service.TargetParams{
		SessionParams: c.getSessionParams(ctx),
		TargetUserId:  targetUserId,
	}
}

func (c controller) handleKickUser(ctx context.Context, _ *websocket.Conn, input TargetUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.Kick(ctx, c.targetParams(ctx, input.TargetUserId))
	if err != nil {
		return fmt.Errorf("failed to kick user: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

func (c controller) handleBanUser(ctx context.Context, _ *websocket.Conn, input TargetUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.Ban(ctx, c.targetParams(ctx, input.TargetUserId))
	if err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

func (c controller) handleUnbanUser(ctx context.Context, _ *websocket.Conn, input TargetUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.Unban(ctx, c.targetParams(ctx, input.TargetUserId))
	if err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

type TransferHostInput struct {
	NewHostId string `json:"new_host_id" validate:"required"`
}

func (c controller) handleTransferHost(ctx context.Context, _ *websocket.Conn, input TransferHostInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	outcome, err := c.roomService.TransferHost(ctx, c.targetParams(ctx, input.NewHostId))
	if err != nil {
		return fmt.Errorf("failed to transfer host: %w", err)
	}
	c.logOutcome(ctx, outcome)

	return nil
}

type JoinRequestInput struct {
	UserId string `json:"user_id" validate:"required"`
}

func (c controller) handleAcceptJoin(ctx context.Context, _ *websocket.Conn, input JoinRequestInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.AcceptJoin(ctx, c.targetParams(ctx, input.UserId)); err != nil {
		return fmt.Errorf("failed to accept join: %w", err)
	}

	return nil
}

func (c controller) handleRejectJoin(ctx context.Context, _ *websocket.Conn, input JoinRequestInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.RejectJoin(ctx, c.targetParams(ctx, input.UserId)); err != nil {
		return fmt.Errorf("failed to reject join: %w", err)
	}

	return nil
}

func (c controller) handleEndRoom(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	params := c.getSessionParams(ctx)
	if _, err := c.roomService.EndRoom(ctx, &params); err != nil {
		return fmt.Errorf("failed to end room: %w", err)
	}

	return nil
}

type SendMessageInput struct {
	Message string `json:"message" validate:"required"`
}

func (c controller) handleSendMessage(ctx context.Context, _ *websocket.Conn, input SendMessageInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.SendMessage(ctx, &service.SendMessageParams{
		SessionParams: c.getSessionParams(ctx),
		Text:          input.Message,
	}); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}
