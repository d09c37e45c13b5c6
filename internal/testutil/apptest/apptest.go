// Package apptest runs the full HTTP application in-process on a
// temporary SQLite store.
package apptest

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/events"
	"github.com/tallyhub/tallyhub/internal/handler"
	"github.com/tallyhub/tallyhub/internal/metrics"
	"github.com/tallyhub/tallyhub/internal/middleware"
	"github.com/tallyhub/tallyhub/internal/repository/sqlite"
	"github.com/tallyhub/tallyhub/internal/service"
	"github.com/tallyhub/tallyhub/internal/testutil"
)

// App is a running in-process server.
type App struct {
	Server  *httptest.Server
	Store   *sqlite.Store
	Metrics *metrics.InMemoryRecorder
	Events  *events.Recorder
}

// URL returns the base URL of the server.
func (a *App) URL() string {
	return a.Server.URL
}

// New starts the application and stops it when the test ends.
func New(t testing.TB) *App {
	t.Helper()

	store := testutil.OpenSQLiteStore(t)
	rec := metrics.NewInMemory()
	pub := &events.Recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     []byte(strings.Repeat("t", 32)),
		Issuer:     "tallyhub-test",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	hasher := auth.NewPasswordHasher(auth.Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})

	polls := service.NewPollService(store, pub, rec, logger, service.Options{})
	router := handler.NewRouter(handler.RouterConfig{
		Auth:     service.NewAuthService(store, hasher, tokens, nil, logger, service.Options{}),
		Polls:    polls,
		Votes:    service.NewVoteService(store, pub, rec, logger, service.Options{}),
		Results:  service.NewResultsService(store, polls, rec, logger),
		Store:    store,
		Metrics:  rec,
		Security: middleware.SecurityConfig{IsDevelopment: true},
		CORS:     middleware.DefaultCORSConfig(),
		Logger:   logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &App{Server: srv, Store: store, Metrics: rec, Events: pub}
}
