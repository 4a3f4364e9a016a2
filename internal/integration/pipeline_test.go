//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/adapter/arcgis"
	kafkaadapter "github.com/couchcryptid/police-incident-etl/internal/adapter/kafka"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/postgres"
	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/couchcryptid/police-incident-etl/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixturePath = "../pipeline/testdata/incidents.geojson"
	testTopic   = "police-incidents-test"
)

func serveFixture(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestPipelineEndToEnd feeds the fixture feed through the ArcGIS client into
// Postgres and Kafka, then reruns it to confirm existing incidents are kept.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	fixture, err := os.ReadFile(fixturePath)
	require.NoError(t, err)
	feed := serveFixture(t, fixture)

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)
	databaseURL := startPostgres(ctx, t)

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	pg, err := postgres.Connect(ctx, databaseURL, 2, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, pg.Migrate(ctx))

	writer := kafkaadapter.NewWriter(&config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
		BatchSize:    10,
	}, logger)
	t.Cleanup(func() { _ = writer.Close() })

	client := arcgis.NewClient(feed.URL+"/query?f=geojson", 10*time.Second, 10*time.Second, logger)
	p := pipeline.New(client, pipeline.NewTransformer(logger, metrics),
		[]pipeline.BatchLoader{pg, writer}, logger, metrics, pipeline.Options{Recorder: pg})

	run, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, 7, run.FeaturesFetched)
	assert.Equal(t, 7, run.Normalized)
	assert.Equal(t, 5, run.Inserted, "duplicate and unnumbered incidents are not inserted")

	stored, err := pg.ListIncidents(ctx, nil)
	require.NoError(t, err)
	require.Len(t, stored, 5)
	byNumber := make(map[string]domain.Incident, len(stored))
	for _, inc := range stored {
		byNumber[inc.IncidentNumber] = inc
	}
	assert.Equal(t, "AMB1234", byNumber["24-000101"].IncidentType, "first occurrence wins")
	assert.Equal(t, domain.MinTimestamp, byNumber["24-000105"].DatetimeLogged)
	assert.Equal(t, "1609", byNumber["24-000102"].ZipCode)

	msgs := readMessages(ctx, t, broker, testTopic, 6)
	first := msgs[0]
	assert.Equal(t, "24-000101", string(first.Key))
	var published domain.Incident
	require.NoError(t, json.Unmarshal(first.Value, &published))
	assert.Equal(t, domain.CategoryMedical, published.IncidentCategory)
	headers := make(map[string]string, len(first.Headers))
	for _, h := range first.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, domain.TimeOfDayMorning, headers[kafkaadapter.HeaderTimeOfDay])
	assert.Equal(t, domain.PriorityHigh, headers[kafkaadapter.HeaderPriority])

	rerun, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, rerun.Inserted)

	runs, err := pg.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, rerun.ID, runs[0].ID)
	assert.Equal(t, run.ID, runs[1].ID)
	assert.Equal(t, 5, runs[1].Inserted)
}

// TestPipelineEmptyFeed verifies an empty collection is recorded as a failed
// run without touching the store.
func TestPipelineEmptyFeed(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	feed := serveFixture(t, []byte(`{"type":"FeatureCollection","features":[]}`))
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	pg, err := postgres.Connect(ctx, startPostgres(ctx, t), 50, logger, metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })
	require.NoError(t, pg.Migrate(ctx))

	client := arcgis.NewClient(feed.URL, 10*time.Second, 10*time.Second, logger)
	p := pipeline.New(client, pipeline.NewTransformer(logger, metrics),
		[]pipeline.BatchLoader{pg}, logger, metrics, pipeline.Options{Recorder: pg})

	_, err = p.RunOnce(ctx)
	require.ErrorIs(t, err, domain.ErrNoFeatures)

	stored, err := pg.ListIncidents(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)

	runs, err := pg.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Success)
	assert.NotEmpty(t, runs[0].Error)
}
