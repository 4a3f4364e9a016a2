// Package sqlite stores incidents in a local SQLite database. It backs the
// ETL in development and in unit tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Timestamps are stored as text in this layout so they sort and compare
// lexically.
const timestampLayout = "2006-01-02 15:04:05"

// Run times keep every fractional digit so runs within one second still sort
// lexically.
const runTimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const incidentColumns = `incident_number, department, incident_type, location, zipcode,
	action_taken, officer, datetime_logged, time_of_day, incident_category, response_priority`

// Store implements pipeline.BatchLoader, pipeline.RunRecorder, and the
// dashboard repository on SQLite.
type Store struct {
	db        *sql.DB
	batchSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Open opens the database at path. SQLite serializes writers, so the pool is
// limited to a single connection.
func Open(ctx context.Context, path string, batchSize int, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return New(db, batchSize, logger, metrics), nil
}

// New wraps an open database handle.
func New(db *sql.DB, batchSize int, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Store{db: db, batchSize: batchSize, logger: logger, metrics: metrics}
}

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// LoadBatch inserts incidents in a single transaction. Existing incident
// numbers are left untouched and incidents without a number are skipped.
// It returns the number of rows newly inserted.
func (s *Store) LoadBatch(ctx context.Context, incidents []domain.Incident) (int, error) {
	keyed, skipped := domain.SplitUnkeyed(incidents)
	if skipped > 0 {
		s.metrics.IncidentsSkipped.Add(float64(skipped))
		s.logger.Warn("skipping incidents without incident number", "count", skipped)
	}
	if len(keyed) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for start := 0; start < len(keyed); start += s.batchSize {
		end := min(start+s.batchSize, len(keyed))
		query, args := insertStatement(keyed[start:end])
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("insert incidents %d-%d: %w", start, end, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load tx: %w", err)
	}
	s.logger.Debug("incidents loaded", "inserted", inserted, "existing", len(keyed)-inserted)
	return inserted, nil
}

func insertStatement(chunk []domain.Incident) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO police_incidents (")
	b.WriteString(incidentColumns)
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(chunk)*len(domain.Columns))
	for i, inc := range chunk {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			inc.IncidentNumber, inc.Department, inc.IncidentType, inc.Location, inc.ZipCode,
			inc.ActionTaken, inc.Officer, inc.DatetimeLogged.UTC().Format(timestampLayout),
			inc.TimeOfDay, inc.IncidentCategory, inc.ResponsePriority,
		)
	}
	b.WriteString(" ON CONFLICT(incident_number) DO NOTHING")
	return b.String(), args
}

// ListIncidents returns stored incidents ordered by logged time. A non-nil
// until keeps incidents logged on or before that calendar date.
func (s *Store) ListIncidents(ctx context.Context, until *time.Time) ([]domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM police_incidents`
	var args []any
	if until != nil {
		query += ` WHERE datetime_logged < ?`
		args = append(args, domain.DayAfter(*until).Format(timestampLayout))
	}
	query += ` ORDER BY datetime_logged, incident_number`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	var out []domain.Incident
	for rows.Next() {
		var (
			inc    domain.Incident
			fields [10]sql.NullString
		)
		if err := rows.Scan(&inc.IncidentNumber, &fields[0], &fields[1], &fields[2], &fields[3],
			&fields[4], &fields[5], &fields[6], &fields[7], &fields[8], &fields[9]); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		inc.Department = fields[0].String
		inc.IncidentType = fields[1].String
		inc.Location = fields[2].String
		inc.ZipCode = fields[3].String
		inc.ActionTaken = fields[4].String
		inc.Officer = fields[5].String
		inc.DatetimeLogged = parseTimestamp(fields[6].String)
		inc.TimeOfDay = fields[7].String
		inc.IncidentCategory = fields[8].String
		inc.ResponsePriority = fields[9].String
		out = append(out, inc)
	}
	return out, rows.Err()
}

// RecordRun stores the audit record of an ingest run.
func (s *Store) RecordRun(ctx context.Context, run domain.IngestRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, source, started_at, finished_at, features_fetched, normalized, inserted, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID.String(), run.Source, run.StartedAt.UTC().Format(runTimestampLayout), run.FinishedAt.UTC().Format(runTimestampLayout),
		run.FeaturesFetched, run.Normalized, run.Inserted, run.Success, nullString(run.Error))
	if err != nil {
		return fmt.Errorf("record ingest run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent ingest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, features_fetched, normalized, inserted, success, error
		FROM ingest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ingest runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.IngestRun
	for rows.Next() {
		var (
			run                domain.IngestRun
			id, started, ended string
			errText            sql.NullString
		)
		if err := rows.Scan(&id, &run.Source, &started, &ended, &run.FeaturesFetched,
			&run.Normalized, &run.Inserted, &run.Success, &errText); err != nil {
			return nil, fmt.Errorf("scan ingest run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse run %s started_at %q: %w", id, started, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, ended); err != nil {
			return nil, fmt.Errorf("parse run %s finished_at %q: %w", id, ended, err)
		}
		run.Error = errText.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return domain.MinTimestamp
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
