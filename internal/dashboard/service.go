package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
)

// Repository reads persisted incidents and ingest runs.
type Repository interface {
	ListIncidents(ctx context.Context, until *time.Time) ([]domain.Incident, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.IngestRun, error)
	Ping(ctx context.Context) error
}

// Cache stores computed summaries by key.
type Cache interface {
	Get(ctx context.Context, key string) (Summary, bool, error)
	Set(ctx context.Context, key string, s Summary) error
}

// Service serves dashboard views from a repository, caching summaries.
type Service struct {
	repo    Repository
	cache   Cache
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. A nil cache disables caching.
func NewService(repo Repository, cache Cache, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, cache: cache, logger: logger, metrics: metrics}
}

// Summary returns the aggregate view for until. Cache failures are logged and
// fall through to the repository.
func (s *Service) Summary(ctx context.Context, until *time.Time) (Summary, error) {
	key := SummaryKey(until)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("summary cache read failed", "key", key, "error", err)
		case ok:
			s.metrics.SummaryCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		s.metrics.SummaryCache.WithLabelValues("miss").Inc()
	}

	// The date range spans every stored incident, so read unfiltered.
	incidents, err := s.repo.ListIncidents(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("list incidents: %w", err)
	}
	summary := Summarize(incidents, until)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Warn("summary cache write failed", "key", key, "error", err)
		}
	}
	return summary, nil
}

// Preview returns up to limit incidents logged on or before until.
func (s *Service) Preview(ctx context.Context, until *time.Time, limit int) ([]domain.Incident, error) {
	incidents, err := s.repo.ListIncidents(ctx, until)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if limit > 0 && len(incidents) > limit {
		incidents = incidents[:limit]
	}
	return incidents, nil
}

// RecentRuns returns the latest ingest runs, newest first.
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	runs, err := s.repo.RecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingest runs: %w", err)
	}
	return runs, nil
}

// CheckReadiness reports whether the repository is reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// SummaryKey is the cache key for a summary bounded by until.
func SummaryKey(until *time.Time) string {
	if until == nil {
		return "summary:all"
	}
	return "summary:" + until.Format(time.DateOnly)
}
