package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/police-incident-etl/internal/adapter/csvexport"
	"github.com/couchcryptid/police-incident-etl/internal/domain"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Extractor retrieves a feature collection and its raw payload.
type Extractor interface {
	Fetch(ctx context.Context) (domain.FeatureCollection, []byte, error)
	Source() string
}

// Transformer converts a feature collection into incidents.
type Transformer interface {
	Transform(ctx context.Context, fc domain.FeatureCollection) ([]domain.Incident, error)
}

// BatchLoader writes incidents to a destination and reports how many were
// newly written.
type BatchLoader interface {
	Name() string
	LoadBatch(ctx context.Context, incidents []domain.Incident) (int, error)
}

// RunRecorder persists the audit record of a run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.IngestRun) error
}

// Stages reported in errors and metrics.
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

// StageError identifies which step of a run failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Options tune a Pipeline. Zero values disable the optional outputs.
type Options struct {
	Interval      time.Duration
	RawOutputPath string
	CSVOutputPath string
	Recorder      RunRecorder
	Clock         clockwork.Clock
}

// Pipeline orchestrates fetch, normalize, and load. The first loader is the
// system of record; its insert count is reported on the run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	opts        Options
	clock       clockwork.Clock
	ready       atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, loaders []BatchLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	clk := opts.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
		opts:        opts,
		clock:       clk,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes the pipeline immediately and then on every interval until the
// context is cancelled. Failed runs are logged and retried on the next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.opts.Interval, "source", p.extractor.Source())
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("pipeline run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce performs one run against the pipeline's extractor.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.IngestRun, error) {
	return p.RunFrom(ctx, p.extractor)
}

// RunFrom performs one run against the given extractor. A transform failure
// aborts the run before anything is written.
func (p *Pipeline) RunFrom(ctx context.Context, e Extractor) (domain.IngestRun, error) {
	run := domain.IngestRun{
		ID:        uuid.New(),
		Source:    e.Source(),
		StartedAt: p.clock.Now().UTC(),
	}

	err := p.execute(ctx, e, &run)

	run.FinishedAt = p.clock.Now().UTC()
	run.Success = err == nil
	if err != nil {
		run.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			p.metrics.BatchFailures.WithLabelValues(se.Stage).Inc()
		}
	} else {
		p.ready.Store(true)
		p.metrics.RunDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
		p.logger.Info("pipeline run complete",
			"run_id", run.ID,
			"source", run.Source,
			"features", run.FeaturesFetched,
			"normalized", run.Normalized,
			"inserted", run.Inserted,
		)
	}

	if p.opts.Recorder != nil {
		if rerr := p.opts.Recorder.RecordRun(ctx, run); rerr != nil {
			p.logger.Warn("record ingest run failed", "run_id", run.ID, "error", rerr)
		}
	}
	return run, err
}

func (p *Pipeline) execute(ctx context.Context, e Extractor, run *domain.IngestRun) error {
	fc, raw, err := e.Fetch(ctx)
	if err != nil {
		return &StageError{Stage: StageExtract, Err: err}
	}
	run.FeaturesFetched = len(fc.Features)
	p.metrics.FeaturesFetched.Add(float64(len(fc.Features)))

	if p.opts.RawOutputPath != "" {
		if err := writeRaw(p.opts.RawOutputPath, raw); err != nil {
			return &StageError{Stage: StageExtract, Err: err}
		}
		p.logger.Debug("raw payload saved", "path", p.opts.RawOutputPath, "bytes", len(raw))
	}

	incidents, err := p.transformer.Transform(ctx, fc)
	if err != nil {
		return &StageError{Stage: StageTransform, Err: err}
	}
	run.Normalized = len(incidents)

	if p.opts.CSVOutputPath != "" {
		if err := csvexport.WriteFile(p.opts.CSVOutputPath, incidents); err != nil {
			return &StageError{Stage: StageTransform, Err: err}
		}
		p.logger.Debug("transformed incidents exported", "path", p.opts.CSVOutputPath, "rows", len(incidents))
	}

	for i, l := range p.loaders {
		n, err := l.LoadBatch(ctx, incidents)
		if err != nil {
			return &StageError{Stage: StageLoad, Err: fmt.Errorf("%s: %w", l.Name(), err)}
		}
		p.metrics.IncidentsLoaded.WithLabelValues(l.Name()).Add(float64(n))
		if i == 0 {
			run.Inserted = n
		}
	}
	return nil
}

func writeRaw(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create raw output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write raw payload: %w", err)
	}
	return nil
}
