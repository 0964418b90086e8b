package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

const maxMessageSize = 4096

// connectRoom upgrades the request and joins the room. The session lives
// until the client disconnects or the room closes it.
func (c controller) connectRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	user, err := c.roomService.ParseToken(r.URL.Query().Get("auth-token"))
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to parse auth token", "error", err)
		c.writeError(w, r, err)
		return
	}

	ctx := c.withUser(r.Context(), user)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomId))

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to upgrade to websocket", "error", err)
		return
	}

	sess := c.newSession(conn, c.logger.With("room_id", roomId, "user_id", user.Id))
	go sess.writePump()
	defer func() {
		sess.Close("")
		<-sess.done
	}()

	joinResult, err := c.roomService.Join(ctx, &service.JoinParams{
		RoomId: roomId,
		User:   user,
		Code:   r.URL.Query().Get("code"),
		Sender: sess,
	})
	if err != nil {
		c.logger.InfoContext(ctx, "failed to join room", "error", err)
		sess.Send(errorEvent(err))
		sess.Close("join failed")
		return
	}

	if joinResult.Admission == service.AdmissionRejected {
		c.logger.InfoContext(ctx, "join rejected", "reason", joinResult.Reason)
		sess.Send(errorEvent(joinResult.Reason))
		sess.Close("join rejected")
		return
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("session_id", joinResult.SessionId))
	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, sessionIdCtxKey, joinResult.SessionId)
	ctx = context.WithValue(ctx, sessionCtxKey, sess)
	c.logger.InfoContext(ctx, "session started", "admission", joinResult.Admission)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	if err := c.wsmux.ServeConn(ctx, conn); err != nil &&
		websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) &&
		!sess.isClosed() {
		c.logger.InfoContext(ctx, "connection lost", "error", err)
	}

	params := c.getSessionParams(ctx)
	if err := c.roomService.Leave(context.WithoutCancel(ctx), &params); err != nil &&
		!errors.Is(err, service.ErrRoomNotFound) {
		c.logger.WarnContext(ctx, "failed to leave room", "error", err)
	}
	c.logger.InfoContext(ctx, "session ended")
}
