package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
)

// IncidentTransformer implements Transformer using the domain normalizer and
// reports degraded fields.
type IncidentTransformer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTransformer creates an IncidentTransformer.
func NewTransformer(logger *slog.Logger, metrics *observability.Metrics) *IncidentTransformer {
	return &IncidentTransformer{logger: logger, metrics: metrics}
}

func (t *IncidentTransformer) Transform(_ context.Context, fc domain.FeatureCollection) ([]domain.Incident, error) {
	incidents, err := domain.NormalizeCollection(fc)
	if err != nil {
		return nil, err
	}

	t.metrics.IncidentsNormalized.Add(float64(len(incidents)))
	for i := range incidents {
		t.observeDegraded(incidents[i])
	}
	return incidents, nil
}

func (t *IncidentTransformer) observeDegraded(inc domain.Incident) {
	if !inc.HasLoggedTime() {
		t.metrics.DegradedFields.WithLabelValues("datetime_logged").Inc()
		t.logger.Debug("logged time unparseable, using minimum timestamp", "incident_number", inc.IncidentNumber)
	}
	if inc.IncidentCategory == domain.CategoryOther {
		t.metrics.DegradedFields.WithLabelValues("incident_category").Inc()
	}
	if inc.ResponsePriority == domain.PriorityUnknown {
		t.metrics.DegradedFields.WithLabelValues("response_priority").Inc()
	}
}
