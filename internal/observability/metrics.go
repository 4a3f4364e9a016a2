package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "police_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL
// pipeline and the dashboard.
type Metrics struct {
	FeaturesFetched     prometheus.Counter
	IncidentsNormalized prometheus.Counter
	DegradedFields      *prometheus.CounterVec // labels: field={datetime_logged,incident_category,response_priority}
	IncidentsLoaded     *prometheus.CounterVec // labels: sink={postgres,sqlite,kafka}
	IncidentsSkipped    prometheus.Counter
	BatchFailures       *prometheus.CounterVec // labels: stage={extract,transform,load}
	PipelineRunning     prometheus.Gauge

	RunDuration prometheus.Histogram

	// Dashboard summary cache.
	SummaryCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeaturesFetched,
		m.IncidentsNormalized,
		m.DegradedFields,
		m.IncidentsLoaded,
		m.IncidentsSkipped,
		m.BatchFailures,
		m.PipelineRunning,
		m.RunDuration,
		m.SummaryCache,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FeaturesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_fetched_total",
			Help:      "Total features read from the incident feed.",
		}),
		IncidentsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_normalized_total",
			Help:      "Total incidents produced by the transform step.",
		}),
		DegradedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_fields_total",
			Help:      "Fields resolved to a fallback value during normalization.",
		}, []string{"field"}),
		IncidentsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_loaded_total",
			Help:      "Incidents newly written, by sink.",
		}, []string{"sink"}),
		IncidentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_skipped_total",
			Help:      "Incidents not stored because they lack an incident number.",
		}),
		BatchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_failures_total",
			Help:      "Failed ETL runs by stage.",
		}, []string{"stage"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the scheduled pipeline is active, 0 when shut down.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-transform-load run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SummaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_total",
			Help:      "Dashboard summary cache lookups by result.",
		}, []string{"result"}),
	}
}
