package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/plume-triage/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/plume-triage/internal/adapter/kafka"
	"github.com/couchcryptid/plume-triage/internal/adapter/openmeteo"
	"github.com/couchcryptid/plume-triage/internal/adapter/store"
	"github.com/couchcryptid/plume-triage/internal/config"
	"github.com/couchcryptid/plume-triage/internal/dispersion"
	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/observability"
	"github.com/couchcryptid/plume-triage/internal/pipeline"
	"github.com/couchcryptid/plume-triage/internal/plumemap"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db, cfg.DBDriver, logger); err != nil {
		return err
	}
	pathogens := store.NewPathogenStore(db, cfg.DBDriver, logger)

	// Live weather is feature-flagged via WEATHER_ENABLED.
	var weather domain.WeatherSource
	if cfg.WeatherEnabled {
		client := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.WeatherTimeout, metrics, logger)
		weather = openmeteo.NewCachedWeather(client, cfg.WeatherCacheSize, cfg.WeatherCacheTTL)
		metrics.WeatherEnabled.Set(1)
		logger.Info("weather lookup enabled", "base_url", cfg.WeatherBaseURL, "cache_size", cfg.WeatherCacheSize, "ttl", cfg.WeatherCacheTTL)
	} else {
		logger.Info("weather lookup disabled")
	}

	cache := dispersion.NewCoefficientCache(cfg.CoefficientCacheSize)
	observability.RegisterCache(cache)

	assessor := pipeline.NewAssessor(
		pathogens,
		weather,
		plumemap.NewMapper(cfg.Mapper(), logger),
		dispersion.NewCalculator(cache),
		pipeline.AssessorConfig{
			FieldResolution:  cfg.FieldResolution,
			FieldMaxDistance: cfg.FieldMaxDistance,
			Contour:          cfg.Contour(),
		},
		logger,
		metrics,
	)

	var (
		ready  httpadapter.ReadinessChecker
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, assessor, writer, logger, metrics, cfg.BatchSize)
		ready = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka worker disabled, serving HTTP only")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, assessor, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
