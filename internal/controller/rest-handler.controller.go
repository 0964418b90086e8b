package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/rest"
)

func (c controller) writeJSON(w http.ResponseWriter, r *http.Request, status int, data rest.Envelope) {
	if err := rest.WriteJSON(w, status, data); err != nil {
		c.logger.WarnContext(r.Context(), "failed to write json", "error", err)
	}
}

type issueTokenRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=32"`
	AvatarRef   string `json:"avatar_ref" validate:"omitempty,url"`
}

func (c controller) issueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.writeBadRequest(w, r, err.Error())
		return
	}

	if errs, ok := c.validate.Validate(req); !ok {
		c.writeValidationError(w, r, errs)
		return
	}

	resp, err := c.roomService.IssueToken(r.Context(), &service.IssueTokenParams{
		DisplayName: req.DisplayName,
		AvatarRef:   req.AvatarRef,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusCreated, rest.Envelope{
		"auth_token": resp.AuthToken,
		"user":       resp.User,
	})
}

type createRoomRequest struct {
	Title       string     `json:"title" validate:"required,max=100"`
	IsPrivate   bool       `json:"is_private"`
	JoinCode    string     `json:"join_code" validate:"omitempty,alphanum,min=4,max=12"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	user, _ := c.getUserFromCtx(r.Context())

	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.writeBadRequest(w, r, err.Error())
		return
	}

	if errs, ok := c.validate.Validate(req); !ok {
		c.writeValidationError(w, r, errs)
		return
	}

	room, err := c.roomService.CreateRoom(r.Context(), &service.CreateRoomParams{
		User:        user,
		Title:       req.Title,
		IsPrivate:   req.IsPrivate,
		JoinCode:    req.JoinCode,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusCreated, rest.Envelope{"room": room})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-id"), c.getUserIdFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, rest.Envelope{"room": room})
}

func (c controller) getMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var limit int
	if raw := query.Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.writeBadRequest(w, r, "limit must be a non-negative integer")
			return
		}
	}

	messages, err := c.roomService.GetMessages(r.Context(), &service.GetMessagesParams{
		RoomId: chi.URLParam(r, "room-id"),
		UserId: c.getUserIdFromCtx(r.Context()),
		Code:   query.Get("code"),
		Limit:  limit,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, rest.Envelope{"messages": messages})
}

func (c controller) getBans(w http.ResponseWriter, r *http.Request) {
	bans, err := c.roomService.GetBans(r.Context(), chi.URLParam(r, "room-id"), c.getUserIdFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, rest.Envelope{"user_ids": bans})
}
