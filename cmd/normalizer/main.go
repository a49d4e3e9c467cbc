package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/climate-data-normalizer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-data-normalizer/internal/adapter/kafka"
	"github.com/couchcryptid/climate-data-normalizer/internal/config"
	"github.com/couchcryptid/climate-data-normalizer/internal/observability"
	"github.com/couchcryptid/climate-data-normalizer/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	normalizer, err := pipeline.NewNormalizer(cfg, metrics, logger, clockwork.NewRealClock())
	if err != nil {
		logger.Error("failed to build normalizer", "error", err)
		os.Exit(1)
	}
	logger.Info("normalizer configured",
		"stat", cfg.AggStat,
		"freq", cfg.AggFreq,
		"exclude_incomplete", cfg.AggExcludeIncomplete,
		"center_time", cfg.AggCenterTime,
		"time_bounds", cfg.AggTimeBounds,
	)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, normalizer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start normalization pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
