// Package main is the entrypoint for the TallyHub API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/cache"
	"github.com/tallyhub/tallyhub/internal/config"
	"github.com/tallyhub/tallyhub/internal/events"
	"github.com/tallyhub/tallyhub/internal/handler"
	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/middleware"
	"github.com/tallyhub/tallyhub/internal/server"
	"github.com/tallyhub/tallyhub/internal/service"
	"github.com/tallyhub/tallyhub/internal/storage"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Initialize entity store
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Error(
			"failed to open entity store",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("entity store ready", "driver", cfg.StorageDriver())

	recorder := metrics.NewInMemory()

	// Redis is optional: without it principals are not cached and events
	// are not published.
	var (
		cacheClient    *cache.Cache
		principalCache service.PrincipalCache
		publisher      events.Publisher = events.NewNoop()
		cacheChecker   handler.HealthChecker
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL, cfg.PrincipalCacheTTL, recorder)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close()
			os.Exit(1)
		}
		principalCache = cacheClient
		publisher = events.NewRedisPublisher(cacheClient.Client(), logger, recorder)
		cacheChecker = cacheClient
		logger.Info("connected to Redis")
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		logger.Error("failed to configure tokens", "error", err)
		os.Exit(1)
	}

	// Initialize services
	opts := service.Options{}
	authService := service.NewAuthService(store, auth.NewPasswordHasher(auth.DefaultParams), tokens, principalCache, logger, opts)
	pollService := service.NewPollService(store, publisher, recorder, logger, opts)
	voteService := service.NewVoteService(store, publisher, recorder, logger, opts)
	resultsService := service.NewResultsService(store, pollService, recorder, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	routerCfg := handler.RouterConfig{
		Auth:        authService,
		Polls:       pollService,
		Votes:       voteService,
		Results:     resultsService,
		Store:       store,
		Cache:       cacheChecker,
		Security:    middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:        corsCfg,
		MaxBodySize: cfg.MaxRequestBodySize,
		Logger:      logger,
	}
	if cfg.MetricsEnabled {
		routerCfg.Metrics = recorder
	}

	srv := server.New(handler.NewRouter(routerCfg), server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run in reverse: Redis closes before the store.
	srv.OnShutdown("store", func(context.Context) error {
		return store.Close()
	})
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return cacheClient.Close()
		})
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"storage", cfg.StorageDriver(),
		"redis", cacheClient != nil,
		"metrics", cfg.MetricsEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL drops the password from a connection URL. SQLite paths pass
// through unchanged.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return passwordPattern.ReplaceAllString(parsed.String(), "password=redacted")
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
