package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/rest"
	"github.com/sharetube/watchparty/pkg/wsrouter"
)

type errorKind struct {
	target error
	code   string
	status int
}

var errorKinds = []errorKind{
	{service.ErrPermissionDenied, "permission_denied", http.StatusForbidden},
	{service.ErrRoomNotFound, "room_not_found", http.StatusNotFound},
	{service.ErrMemberNotFound, "member_not_found", http.StatusNotFound},
	{service.ErrJoinRequestNotFound, "join_request_not_found", http.StatusNotFound},
	{service.ErrInvalidCode, "invalid_code", http.StatusForbidden},
	{service.ErrRoomEnded, "room_ended", http.StatusGone},
	{service.ErrRoomFull, "room_full", http.StatusConflict},
	{service.ErrRoomClosed, "room_closed", http.StatusServiceUnavailable},
	{service.ErrCannotTargetHost, "cannot_target_host", http.StatusBadRequest},
	{service.ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{service.ErrInvalidToken, "invalid_token", http.StatusUnauthorized},
	{wsrouter.ErrInvalidMessage, "invalid_message", http.StatusBadRequest},
	{wsrouter.ErrUnknownMessageType, "unknown_message_type", http.StatusBadRequest},
}

const internalErrorCode = "internal"

// classify maps err to a wire code and an http status.
func classify(err error) (string, int) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			return kind.code, kind.status
		}
	}

	return internalErrorCode, http.StatusInternalServerError
}

func errorEvent(err error) service.ErrorEvent {
	code, _ := classify(err)
	message := err.Error()
	if code == internalErrorCode {
		message = "internal error"
	}

	return service.ErrorEvent{Code: code, Message: message}
}

// handleWSError reports err to the session that sent the failing message only.
func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	event := errorEvent(err)
	if event.Code == internalErrorCode {
		c.logger.ErrorContext(ctx, "failed to handle message", "error", err)
	} else {
		c.logger.InfoContext(ctx, "message rejected", "error", err)
	}

	sess, ok := c.getSessionFromCtx(ctx)
	if !ok {
		return
	}
	sess.Send(event)
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, status := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
		message = "internal error"
	}

	c.writeJSON(w, r, status, rest.Envelope{
		"error": rest.Envelope{"code": code, "message": message},
	})
}

func (c controller) writeValidationError(w http.ResponseWriter, r *http.Request, errs any) {
	c.writeJSON(w, r, http.StatusBadRequest, rest.Envelope{
		"error": rest.Envelope{"code": "invalid_input", "fields": errs},
	})
}

func (c controller) writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	c.writeJSON(w, r, http.StatusBadRequest, rest.Envelope{
		"error": rest.Envelope{"code": "invalid_input", "message": message},
	})
}
