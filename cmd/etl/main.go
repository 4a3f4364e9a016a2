// Command etl ingests police incident features, normalizes them, and loads
// them into the configured store and sinks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/csvexport"
	httpadapter "github.com/couchcryptid/police-incident-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/police-incident-etl/internal/adapter/kafka"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/spool"
	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/couchcryptid/police-incident-etl/internal/pipeline"
	"github.com/couchcryptid/police-incident-etl/internal/store"
)

type cli struct {
	Serve   serveCmd   `cmd:"" default:"1" help:"Run the scheduled ingest with health and metrics endpoints."`
	Once    onceCmd    `cmd:"" help:"Run a single ingest and exit."`
	Watch   watchCmd   `cmd:"" help:"Ingest GeoJSON files dropped into the spool directory."`
	Export  exportCmd  `cmd:"" help:"Write stored incidents to a CSV file."`
	Migrate migrateCmd `cmd:"" help:"Apply schema migrations and exit."`
}

// app carries the process-wide dependencies bound into every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("etl"),
		kong.Description("Police incident ETL."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	a := &app{
		cfg:     cfg,
		logger:  observability.NewLogger(cfg),
		metrics: observability.NewMetrics(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(a); err != nil {
		a.logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}

// openStore connects to the configured store and applies migrations.
func (a *app) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, a.cfg, a.logger, a.metrics)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate %s: %w", s.Name(), err)
	}
	return s, nil
}

// newPipeline builds the ingest pipeline over the store and, when
// configured, the Kafka sink. The returned cleanup closes the sinks.
func (a *app) newPipeline(s store.Store) (*pipeline.Pipeline, func()) {
	loaders := []pipeline.BatchLoader{s}
	var writer *kafkaadapter.Writer
	if a.cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(a.cfg, a.logger)
		loaders = append(loaders, writer)
		a.logger.Info("kafka sink enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}

	client := arcgis.NewClient(a.cfg.SourceURL, a.cfg.SourceTimeout, a.cfg.SourceMaxRetryElapsed, a.logger)
	p := pipeline.New(client, pipeline.NewTransformer(a.logger, a.metrics), loaders, a.logger, a.metrics, pipeline.Options{
		Interval:      a.cfg.IngestInterval,
		RawOutputPath: a.cfg.RawOutputPath,
		CSVOutputPath: a.cfg.CSVOutputPath,
		Recorder:      s,
	})

	return p, func() {
		if writer != nil {
			if err := writer.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}
		if err := s.Close(); err != nil {
			a.logger.Error("store close error", "error", err)
		}
	}
}

// serveOps runs the ops HTTP server until ctx is done.
func (a *app) serveOps(ctx context.Context, checks ...httpadapter.Check) {
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.logger, checks...)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
}

type serveCmd struct{}

func (serveCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	p, cleanup := a.newPipeline(s)
	defer cleanup()

	opsDone := make(chan struct{})
	go func() {
		defer close(opsDone)
		a.serveOps(ctx,
			httpadapter.Check{Name: "pipeline", Checker: p},
			httpadapter.Check{Name: "store", Checker: store.Readiness{Store: s}},
		)
	}()

	err = p.Run(ctx)
	a.logger.Info("shutting down")
	<-opsDone
	a.logger.Info("shutdown complete")
	return err
}

type onceCmd struct{}

func (onceCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	p, cleanup := a.newPipeline(s)
	defer cleanup()

	run, err := p.RunOnce(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("ingest complete",
		"run_id", run.ID,
		"fetched", run.FeaturesFetched,
		"normalized", run.Normalized,
		"inserted", run.Inserted,
	)
	return nil
}

type watchCmd struct {
	Dir      string `help:"Spool directory to watch. Defaults to SPOOL_DIR."`
	Backfill bool   `help:"Ingest files already present before watching." default:"true" negatable:""`
}

func (c watchCmd) Run(ctx context.Context, a *app) error {
	dir := c.Dir
	if dir == "" {
		dir = a.cfg.SpoolDir
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	p, cleanup := a.newPipeline(s)
	defer cleanup()

	w, err := spool.NewWatcher(dir, func(ctx context.Context, path string) error {
		_, err := p.RunFrom(ctx, spool.NewFileSource(path))
		return err
	}, a.logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	if c.Backfill {
		if err := w.Backfill(ctx); err != nil {
			return err
		}
	}

	a.logger.Info("watching spool directory", "dir", dir)
	a.serveOps(ctx, httpadapter.Check{Name: "store", Checker: store.Readiness{Store: s}})
	a.logger.Info("shutdown complete")
	return nil
}

type exportCmd struct {
	Output string `arg:"" help:"Destination CSV path."`
	Until  string `help:"Only export incidents logged on or before this date (YYYY-MM-DD)."`
}

func (c exportCmd) Run(ctx context.Context, a *app) error {
	var until *time.Time
	if c.Until != "" {
		t, err := time.Parse(time.DateOnly, c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until %q: %w", c.Until, err)
		}
		until = &t
	}

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	incidents, err := s.ListIncidents(ctx, until)
	if err != nil {
		return err
	}
	if err := csvexport.WriteFile(c.Output, incidents); err != nil {
		return err
	}
	a.logger.Info("incidents exported", "path", c.Output, "count", len(incidents))
	return nil
}

type migrateCmd struct{}

func (migrateCmd) Run(ctx context.Context, a *app) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	return s.Close()
}
