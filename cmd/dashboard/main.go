// Command dashboard serves incident summaries over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/police-incident-etl/internal/adapter/dashboardapi"
	"github.com/couchcryptid/police-incident-etl/internal/adapter/rediscache"
	"github.com/couchcryptid/police-incident-etl/internal/config"
	"github.com/couchcryptid/police-incident-etl/internal/dashboard"
	"github.com/couchcryptid/police-incident-etl/internal/observability"
	"github.com/couchcryptid/police-incident-etl/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := store.Open(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	var cache dashboard.Cache
	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		cache = rediscache.NewCache(client, cfg.CacheTTL)
		logger.Info("summary cache: redis", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	} else {
		cache = dashboard.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL, nil)
		logger.Info("summary cache: memory", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	svc := dashboard.NewService(repo, cache, logger, metrics)
	router := dashboardapi.NewRouter(dashboardapi.NewHandler(svc, logger), logger)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	srv := dashboardapi.NewServer(cfg.DashboardAddr, router)

	go func() {
		logger.Info("dashboard server starting", "addr", cfg.DashboardAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("dashboard server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("dashboard server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
