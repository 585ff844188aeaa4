package api

import (
	"encoding/json"
	"net/http"

	"github.com/binarjoin/agent-engine/internal/api/handlers"
	"github.com/binarjoin/agent-engine/internal/api/middleware"
	"github.com/binarjoin/agent-engine/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.OwnerExtractor)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-User-Id", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-Trace-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewAPIKeyAuth(cfg.Server.APIKeys).Middleware)

	// Health & info
	r.Get("/health", h.Health)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1/ai", func(r chi.Router) {
		// Providers
		r.Get("/status", h.Status)
		r.Get("/models", h.ListModels)
		r.Post("/select", h.SelectModel)
		r.Post("/reset-usage", h.ResetUsage)
		r.Route("/huggingface", func(r chi.Router) {
			r.Get("/models", h.ListHuggingFaceModels)
			r.Post("/switch", h.SwitchHuggingFaceModel)
		})

		// Conversations
		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireOwner)
			r.Post("/chat", h.Chat)
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", h.ListSessions)
				r.Post("/", h.CreateSession)
				r.Route("/{sessionId}", func(r chi.Router) {
					r.Delete("/", h.DeleteSession)
					r.Get("/messages", h.SessionMessages)
					r.Get("/pending-operations", h.ListPendingOperations)
					r.Post("/confirm/{operationId}", h.ConfirmOperation)
					r.Post("/cancel/{operationId}", h.CancelOperation)
				})
			})
		})
	})

	return r
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Server.Version,
			"service": "binarjoin-ai-engine",
		})
	}
}
