package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	incidents []domain.Incident
	runs      []domain.IngestRun
	err       error
	listCalls int
	lastUntil *time.Time
}

func (f *fakeRepo) ListIncidents(_ context.Context, until *time.Time) ([]domain.Incident, error) {
	f.listCalls++
	f.lastUntil = until
	if f.err != nil {
		return nil, f.err
	}
	if until == nil {
		return f.incidents, nil
	}
	var out []domain.Incident
	for _, inc := range f.incidents {
		if inc.LoggedOnOrBefore(*until) {
			out = append(out, inc)
		}
	}
	return out, nil
}

func (f *fakeRepo) RecentRuns(_ context.Context, limit int) ([]domain.IngestRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.runs) > limit {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRepo) Ping(context.Context) error { return f.err }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (Summary, bool, error) {
	return Summary{}, false, errors.New("connection reset")
}

func (brokenCache) Set(context.Context, string, Summary) error {
	return errors.New("connection reset")
}

func TestService_Summary_Caches(t *testing.T) {
	repo := &fakeRepo{incidents: sample()}
	metrics := observability.NewMetricsForTesting()
	svc := NewService(repo, NewMemoryCache(8, time.Minute, clockwork.NewFakeClock()), slog.Default(), metrics)

	until := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	first, err := svc.Summary(context.Background(), &until)
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), &until)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 1, repo.listCalls)
	assert.Nil(t, repo.lastUntil, "summary reads unfiltered incidents for the date range")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SummaryCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SummaryCache.WithLabelValues("miss")), 0)

	_, err = svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_Summary_CacheFailureFallsThrough(t *testing.T) {
	repo := &fakeRepo{incidents: sample()}
	svc := NewService(repo, brokenCache{}, slog.Default(), observability.NewMetricsForTesting())

	s, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 9, s.Total)
}

func TestService_Summary_NoCache(t *testing.T) {
	repo := &fakeRepo{incidents: sample()}
	svc := NewService(repo, nil, slog.Default(), observability.NewMetricsForTesting())

	_, err := svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	_, err = svc.Summary(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
}

func TestService_Summary_RepositoryError(t *testing.T) {
	svc := NewService(&fakeRepo{err: errors.New("db down")}, nil, slog.Default(), observability.NewMetricsForTesting())

	_, err := svc.Summary(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	require.Error(t, svc.CheckReadiness(context.Background()))
}

func TestService_Preview(t *testing.T) {
	repo := &fakeRepo{incidents: sample()}
	svc := NewService(repo, nil, slog.Default(), observability.NewMetricsForTesting())

	until := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows, err := svc.Preview(context.Background(), &until, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = svc.Preview(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestService_RecentRuns(t *testing.T) {
	repo := &fakeRepo{runs: []domain.IngestRun{{Source: "a"}, {Source: "b"}}}
	svc := NewService(repo, nil, slog.Default(), observability.NewMetricsForTesting())

	runs, err := svc.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.IngestRun{{Source: "a"}}, runs)
}

func TestSummaryKey(t *testing.T) {
	assert.Equal(t, "summary:all", SummaryKey(nil))
	until := time.Date(2024, time.March, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "summary:2024-03-02", SummaryKey(&until))
}
