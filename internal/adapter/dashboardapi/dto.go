package dashboardapi

import (
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
)

// Query limits.
const (
	defaultPreviewLimit = 100
	defaultRunsLimit    = 20
)

// SummaryQuery are the query parameters of GET /summary.
type SummaryQuery struct {
	Until string `form:"until" validate:"omitempty,datetime=2006-01-02"`
}

// IncidentsQuery are the query parameters of GET /incidents.
type IncidentsQuery struct {
	Until string `form:"until" validate:"omitempty,datetime=2006-01-02"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=1000"`
}

// RunsQuery are the query parameters of GET /runs.
type RunsQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=200"`
}

// RunResponse is the JSON form of an ingest run.
type RunResponse struct {
	ID              string    `json:"id"`
	Source          string    `json:"source"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	FeaturesFetched int       `json:"features_fetched"`
	Normalized      int       `json:"normalized"`
	Inserted        int       `json:"inserted"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
}

// IncidentsResponse wraps a preview page.
type IncidentsResponse struct {
	Count     int               `json:"count"`
	Incidents []domain.Incident `json:"incidents"`
}

func runToResponse(run domain.IngestRun) RunResponse {
	return RunResponse{
		ID:              run.ID.String(),
		Source:          run.Source,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		DurationSeconds: run.FinishedAt.Sub(run.StartedAt).Seconds(),
		FeaturesFetched: run.FeaturesFetched,
		Normalized:      run.Normalized,
		Inserted:        run.Inserted,
		Success:         run.Success,
		Error:           run.Error,
	}
}

// parseUntil converts a validated YYYY-MM-DD value; empty means unbounded.
func parseUntil(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
