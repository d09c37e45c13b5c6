package handler

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/middleware"
	"github.com/tallyhub/tallyhub/internal/service"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Auth    *service.AuthService
	Polls   *service.PollService
	Votes   *service.VoteService
	Results *service.ResultsService

	Store HealthChecker
	// Cache is nil when Redis is not configured.
	Cache HealthChecker
	// Metrics is nil when the /metrics endpoint is disabled.
	Metrics metrics.Snapshotter

	Security    middleware.SecurityConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Logger      *slog.Logger
}

// NewRouter builds the application router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxRequestBodySize
	}

	h := New(logger)
	healthHandler := NewHealthHandler(cfg.Store, cfg.Cache)
	authHandler := NewAuthHandler(cfg.Auth, logger)
	pollHandler := NewPollHandler(cfg.Polls, cfg.Results, logger)
	questionHandler := NewQuestionHandler(cfg.Polls, cfg.Votes, logger)
	userHandler := NewUserHandler(cfg.Auth, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))

	// Health endpoints (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	if cfg.Metrics != nil {
		r.Get("/metrics", NewMetricsHandler(cfg.Metrics).Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodySize(maxBody))
		r.Use(middleware.Authenticate(cfg.Auth, logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(middleware.RequireAuth).Get("/me", authHandler.Me)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", userHandler.List)
			r.Get("/{id}", userHandler.Get)
		})

		// Reads are open to anonymous principals; access is decided per poll.
		r.Route("/polls", func(r chi.Router) {
			r.Get("/", pollHandler.List)
			r.With(middleware.RequireAuth).Post("/", pollHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pollHandler.Get)
				r.Get("/results", pollHandler.Results)
				r.With(middleware.RequireAuth).Patch("/", pollHandler.Update)
				r.With(middleware.RequireAuth).Delete("/", pollHandler.Delete)
				r.With(middleware.RequireAuth).Post("/close", pollHandler.Close)

				r.Get("/questions", questionHandler.List)
				r.With(middleware.RequireAuth).Post("/questions", questionHandler.Create)
				r.Get("/questions/{qid}", questionHandler.Get)
				r.With(middleware.RequireAuth).Patch("/questions/{qid}", questionHandler.Update)
				r.With(middleware.RequireAuth).Delete("/questions/{qid}", questionHandler.Delete)
				r.With(middleware.RequireAuth).Post("/questions/{qid}/vote", questionHandler.Vote)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
