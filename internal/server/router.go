package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldt-labs/papyrus/internal/api"
	"github.com/veldt-labs/papyrus/internal/api/handlers"
	"github.com/veldt-labs/papyrus/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler

	// MaxUploadBytes caps request bodies; document uploads are the
	// largest payloads the API accepts.
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxUploadBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 50 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{documentID}", cfg.DocumentHandler.Get)
		r.Delete("/{documentID}", cfg.DocumentHandler.Delete)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", cfg.ChatHandler.CreateSession)
		r.Get("/{sessionID}", cfg.ChatHandler.GetSession)
		r.Post("/{sessionID}/ask", cfg.ChatHandler.Ask)
	})

	return r
}
