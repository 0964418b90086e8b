package controller

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sharetube/watchparty/internal/service"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = ctxlogger.AppendCtx(ctx, slog.String("request_id", c.generateTimeBasedId()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}

func (c controller) withUser(ctx context.Context, user service.User) context.Context {
	ctx = context.WithValue(ctx, userCtxKey, user)
	return ctxlogger.AppendCtx(ctx, slog.String("user_id", user.Id))
}

// authMw requires a valid bearer token and stores its user in the context.
func (c controller) authMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := c.roomService.ParseToken(bearerToken(r))
		if err != nil {
			c.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(c.withUser(r.Context(), user)))
	})
}

// optionalAuthMw stores the user when a valid bearer token is present.
func (c controller) optionalAuthMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := c.roomService.ParseToken(token)
		if err != nil {
			c.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(c.withUser(r.Context(), user)))
	})
}
