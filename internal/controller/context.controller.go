package controller

import (
	"context"

	"github.com/sharetube/watchparty/internal/service"
)

type contextKey int

const (
	roomIdCtxKey contextKey = iota
	userCtxKey
	sessionIdCtxKey
	sessionCtxKey
)

func (c controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, ok := ctx.Value(roomIdCtxKey).(string)
	if !ok {
		return ""
	}

	return roomId
}

func (c controller) getUserFromCtx(ctx context.Context) (service.User, bool) {
	user, ok := ctx.Value(userCtxKey).(service.User)
	return user, ok
}

func (c controller) getUserIdFromCtx(ctx context.Context) string {
	user, _ := c.getUserFromCtx(ctx)
	return user.Id
}

func (c controller) getSessionIdFromCtx(ctx context.Context) string {
	sessionId, ok := ctx.Value(sessionIdCtxKey).(string)
	if !ok {
		return ""
	}

	return sessionId
}

func (c controller) getSessionParams(ctx context.Context) service.SessionParams {
	return service.SessionParams{
		RoomId:    c.getRoomIdFromCtx(ctx),
		UserId:    c.getUserIdFromCtx(ctx),
		SessionId: c.getSessionIdFromCtx(ctx),
	}
}

func (c controller) getSessionFromCtx(ctx context.Context) (*session, bool) {
	sess, ok := ctx.Value(sessionCtxKey).(*session)
	return sess, ok
}
