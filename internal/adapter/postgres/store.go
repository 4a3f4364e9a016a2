// Package postgres stores incidents in PostgreSQL using a pgx connection
// pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertIncidentSQL = `
	INSERT INTO police_incidents (
		incident_number, department, incident_type, location, zipcode,
		action_taken, officer, datetime_logged, time_of_day, incident_category, response_priority
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (incident_number) DO NOTHING`

const selectIncidentsSQL = `
	SELECT incident_number, COALESCE(department, ''), COALESCE(incident_type, ''), COALESCE(location, ''),
		COALESCE(zipcode, ''), COALESCE(action_taken, ''), COALESCE(officer, ''), datetime_logged,
		COALESCE(time_of_day, ''), COALESCE(incident_category, ''), COALESCE(response_priority, '')
	FROM police_incidents`

// Store implements pipeline.BatchLoader, pipeline.RunRecorder, and the
// dashboard repository on PostgreSQL.
type Store struct {
	pool        *pgxpool.Pool
	databaseURL string
	batchSize   int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Connect creates a connection pool for databaseURL and verifies it.
func Connect(ctx context.Context, databaseURL string, batchSize int, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if batchSize <= 0 {
		batchSize = 50
	}
	return &Store{
		pool:        pool,
		databaseURL: databaseURL,
		batchSize:   batchSize,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	return Migrate(s.databaseURL, s.logger)
}

// LoadBatch inserts incidents in one transaction, sending BATCH_SIZE
// statements per round trip. Existing incident numbers are left untouched
// and incidents without a number are skipped. It returns the number of rows
// newly inserted.
func (s *Store) LoadBatch(ctx context.Context, incidents []domain.Incident) (int, error) {
	keyed, skipped := domain.SplitUnkeyed(incidents)
	if skipped > 0 {
		s.metrics.IncidentsSkipped.Add(float64(skipped))
		s.logger.Warn("skipping incidents without incident number", "count", skipped)
	}
	if len(keyed) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inserted := 0
	for start := 0; start < len(keyed); start += s.batchSize {
		end := min(start+s.batchSize, len(keyed))
		n, err := s.sendChunk(ctx, tx, keyed[start:end])
		if err != nil {
			return 0, fmt.Errorf("insert incidents %d-%d: %w", start, end, err)
		}
		inserted += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit load tx: %w", err)
	}
	s.logger.Debug("incidents loaded", "inserted", inserted, "existing", len(keyed)-inserted)
	return inserted, nil
}

func (s *Store) sendChunk(ctx context.Context, tx pgx.Tx, chunk []domain.Incident) (int, error) {
	batch := &pgx.Batch{}
	for _, inc := range chunk {
		batch.Queue(insertIncidentSQL,
			inc.IncidentNumber, inc.Department, inc.IncidentType, inc.Location, inc.ZipCode,
			inc.ActionTaken, inc.Officer, inc.DatetimeLogged.UTC(), inc.TimeOfDay,
			inc.IncidentCategory, inc.ResponsePriority,
		)
	}

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for range chunk {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, br.Close()
}

// ListIncidents returns stored incidents ordered by logged time. A non-nil
// until keeps incidents logged on or before that calendar date.
func (s *Store) ListIncidents(ctx context.Context, until *time.Time) ([]domain.Incident, error) {
	query := selectIncidentsSQL
	var args []any
	if until != nil {
		query += ` WHERE datetime_logged IS NULL OR datetime_logged < $1`
		args = append(args, domain.DayAfter(*until))
	}
	query += ` ORDER BY datetime_logged NULLS FIRST, incident_number`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		var (
			inc    domain.Incident
			logged *time.Time
		)
		if err := rows.Scan(&inc.IncidentNumber, &inc.Department, &inc.IncidentType, &inc.Location,
			&inc.ZipCode, &inc.ActionTaken, &inc.Officer, &logged,
			&inc.TimeOfDay, &inc.IncidentCategory, &inc.ResponsePriority); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.DatetimeLogged = domain.MinTimestamp
		if logged != nil {
			inc.DatetimeLogged = logged.UTC()
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// RecordRun stores the audit record of an ingest run.
func (s *Store) RecordRun(ctx context.Context, run domain.IngestRun) error {
	var errText *string
	if run.Error != "" {
		errText = &run.Error
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_runs (id, source, started_at, finished_at, features_fetched, normalized, inserted, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, run.ID, run.Source, run.StartedAt, run.FinishedAt, run.FeaturesFetched, run.Normalized, run.Inserted, run.Success, errText)
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent ingest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, started_at, finished_at, features_fetched, normalized, inserted, success, COALESCE(error, '')
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IngestRun
	for rows.Next() {
		var run domain.IngestRun
		if err := rows.Scan(&run.ID, &run.Source, &run.StartedAt, &run.FinishedAt, &run.FeaturesFetched,
			&run.Normalized, &run.Inserted, &run.Success, &run.Error); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
