// Package storage opens the entity store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/tallyhub/tallyhub/internal/config"
	"github.com/tallyhub/tallyhub/internal/repository"
	"github.com/tallyhub/tallyhub/internal/repository/sqlite"
	"github.com/tallyhub/tallyhub/internal/service"
)

// Store is an entity store that can be released.
type Store interface {
	service.Store
	Close() error
}

type pgStore struct {
	*repository.Repository
}

func (s pgStore) Close() error {
	s.Repository.Close()
	return nil
}

// Open connects to the store named by cfg.DatabaseURL and makes sure the
// schema exists.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch driver := cfg.StorageDriver(); driver {
	case config.DriverPostgres:
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return pgStore{repo}, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
