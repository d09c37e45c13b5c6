package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tallyhub/tallyhub/internal/config"
)

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tallyhub.db")
	store, err := Open(context.Background(), &config.Config{DatabaseURL: "sqlite://" + path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), &config.Config{DatabaseURL: "mysql://localhost/db"}); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
