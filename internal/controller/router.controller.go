package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Post("/auth/token", c.issueToken)
		r.Route("/rooms", func(r chi.Router) {
			r.With(c.authMw).Post("/", c.createRoom)
			r.Route("/{room-id}", func(r chi.Router) {
				r.With(c.optionalAuthMw).Get("/", c.getRoom)
				r.With(c.authMw).Get("/messages", c.getMessages)
				r.With(c.authMw).Get("/bans", c.getBans)
			})
		})
		r.Route("/ws", func(r chi.Router) {
			r.Get("/rooms/{room-id}", c.connectRoom)
		})
	})

	return r
}
