package store_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/couchcryptid/police-incident-etl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		StoreDriver: config.DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "incidents.db"),
		BatchSize:   10,
	}

	s, err := store.Open(ctx, cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx))
	assert.Equal(t, "sqlite", s.Name())
	require.NoError(t, store.Readiness{Store: s}.CheckReadiness(ctx))

	logged := time.Date(2024, time.March, 1, 6, 15, 0, 0, time.UTC)
	n, err := s.LoadBatch(ctx, []domain.Incident{{
		IncidentNumber:   "24-1",
		IncidentType:     "AMB1",
		DatetimeLogged:   logged,
		TimeOfDay:        domain.TimeOfDayMorning,
		IncidentCategory: domain.CategoryMedical,
		ResponsePriority: domain.PriorityHigh,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := store.Open(context.Background(), &config.Config{StoreDriver: "mysql"}, discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestReadiness_ClosedStore(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")}

	s, err := store.Open(ctx, cfg, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = store.Readiness{Store: s}.CheckReadiness(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}
