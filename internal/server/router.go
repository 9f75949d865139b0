package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recallware/memspace/internal/api"
	"github.com/recallware/memspace/internal/api/handlers"
	"github.com/recallware/memspace/internal/api/middleware"
)

type RouterConfig struct {
	AuthValidator   middleware.AuthValidator
	SpaceHandler    *handlers.SpaceHandler
	ChatHandler     *handlers.ChatHandler
	FactHandler     *handlers.FactHandler
	NoteHandler     *handlers.NoteHandler
	ProfileHandler  *handlers.ProfileHandler
	TimelineHandler *handlers.TimelineHandler
	SessionHandler  *handlers.SessionHandler
	AuthHandler     *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/chat", cfg.ChatHandler.Chat)

		r.Route("/spaces", func(r chi.Router) {
			r.Post("/", cfg.SpaceHandler.Create)
			r.Get("/", cfg.SpaceHandler.List)

			r.Route("/{spaceID}", func(r chi.Router) {
				r.Get("/", cfg.SpaceHandler.Get)
				r.Put("/", cfg.SpaceHandler.Update)
				r.Delete("/", cfg.SpaceHandler.Delete)

				r.Post("/facts", cfg.FactHandler.Create)
				r.Get("/facts", cfg.FactHandler.List)

				r.Post("/notes", cfg.NoteHandler.Create)
				r.Get("/notes", cfg.NoteHandler.List)

				r.Post("/profile", cfg.ProfileHandler.Create)
				r.Get("/profile", cfg.ProfileHandler.List)

				r.Post("/timeline", cfg.TimelineHandler.Append)
				r.Get("/timeline", cfg.TimelineHandler.List)
			})
		})

		r.Route("/facts/{factID}", func(r chi.Router) {
			r.Get("/", cfg.FactHandler.Get)
			r.Put("/", cfg.FactHandler.Update)
			r.Delete("/", cfg.FactHandler.Delete)
		})

		r.Route("/notes/{noteID}", func(r chi.Router) {
			r.Get("/", cfg.NoteHandler.Get)
			r.Put("/", cfg.NoteHandler.Update)
			r.Delete("/", cfg.NoteHandler.Delete)
			r.Post("/promote", cfg.NoteHandler.Promote)
		})

		r.Route("/profile/{entryID}", func(r chi.Router) {
			r.Get("/", cfg.ProfileHandler.Get)
			r.Put("/", cfg.ProfileHandler.Update)
			r.Delete("/", cfg.ProfileHandler.Delete)
		})

		r.Route("/timeline/{entryID}", func(r chi.Router) {
			r.Get("/", cfg.TimelineHandler.Get)
			r.Delete("/", cfg.TimelineHandler.Delete)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", cfg.SessionHandler.List)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.SessionHandler.Get)
				r.Patch("/", cfg.SessionHandler.Rename)
				r.Delete("/", cfg.SessionHandler.Delete)
				r.Get("/messages", cfg.SessionHandler.History)
				r.Get("/export", cfg.SessionHandler.Export)
			})
		})

		r.Route("/keys", func(r chi.Router) {
			r.Post("/", cfg.AuthHandler.Create)
			r.Get("/", cfg.AuthHandler.List)
			r.Delete("/{keyID}", cfg.AuthHandler.Revoke)
		})
	})

	return r
}
