// Package store opens the configured incident store.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/police-incident-etl/internal/adapter/postgres"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/dashboard"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/couchcryptid/police-incident-etl/internal/pipeline"
)

// Store is the system of record for incidents and ingest runs.
type Store interface {
	pipeline.BatchLoader
	pipeline.RunRecorder
	dashboard.Repository
	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*postgres.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open connects to the store selected by STORE_DRIVER. The schema is not
// touched; call Migrate before loading.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.BatchSize, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.BatchSize, logger, metrics)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Readiness adapts a Store's Ping to a readiness check.
type Readiness struct {
	Store Store
}

func (r Readiness) CheckReadiness(ctx context.Context) error {
	if err := r.Store.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	return nil
}
