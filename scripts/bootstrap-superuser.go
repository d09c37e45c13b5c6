// Command bootstrap-superuser creates a superuser account, or promotes an
// existing one, directly in the entity store.
//
//	DATABASE_URL=sqlite://tallyhub.db go run ./scripts/bootstrap-superuser.go -username admin -email admin@example.com
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tallyhub/tallyhub/internal/auth"
	"github.com/tallyhub/tallyhub/internal/config"
	"github.com/tallyhub/tallyhub/internal/service"
	"github.com/tallyhub/tallyhub/internal/storage"
)

type output struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Created  bool   `json:"created"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "postgres:// or sqlite:// connection string")
		username    = flag.String("username", "admin", "Account username")
		email       = flag.String("email", "", "Account email (required when the account does not exist)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	password := os.Getenv("SUPERUSER_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "SUPERUSER_PASSWORD is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := &config.Config{DatabaseURL: *databaseURL}
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open store:", err)
		os.Exit(1)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewAuthService(store, auth.NewPasswordHasher(auth.DefaultParams), nil, nil, logger, service.Options{})

	user, created, err := svc.EnsureSuperuser(ctx, service.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: password,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ensure superuser:", err)
		os.Exit(1)
	}

	out := output{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Created:  created,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.UserID)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}
