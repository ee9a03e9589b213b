package server

import (
	"net/http"

	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/handlers"
	"github.com/THL3VPN/piaic71-hackathon1-v1/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RAGHandler    *handlers.RAGHandler
	ChatHandler   *handlers.ChatHandler
	HealthHandler *handlers.HealthHandler
	RateLimiter   *middleware.RateLimiter
	CORSOrigins   []string
	MaxBodyBytes  int64
	// TrustedProxy takes the client address from X-Real-IP / X-Forwarded-For.
	// Only enable it behind a proxy that overwrites those headers.
	TrustedProxy  bool
	Logger        *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = middleware.DefaultMaxBodyBytes
	}

	if cfg.TrustedProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", middleware.HeaderRetryAfter},
			MaxAge:         300,
		}))
	}

	r.Get("/health", cfg.HealthHandler.Health)
	r.Get("/ready", cfg.HealthHandler.Ready)

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}

		r.Route("/rag", func(r chi.Router) {
			r.Post("/query", cfg.RAGHandler.Query)
			r.Post("/search", cfg.RAGHandler.Search)
			r.Get("/stats", cfg.RAGHandler.Stats)
		})

		r.Route("/v1", func(r chi.Router) {
			r.Post("/chat", cfg.ChatHandler.Chat)
			r.Get("/sessions/{id}", cfg.ChatHandler.Session)
			r.Get("/sessions/{id}/history", cfg.ChatHandler.History)
		})
	})

	return r
}
