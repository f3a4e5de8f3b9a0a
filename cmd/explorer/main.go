package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/rainfall-explorer/internal/adapter/api"
	"github.com/couchcryptid/rainfall-explorer/internal/adapter/boundary"
	httpadapter "github.com/couchcryptid/rainfall-explorer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rainfall-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/rainfall-explorer/internal/adapter/openmeteo"
	"github.com/couchcryptid/rainfall-explorer/internal/config"
	"github.com/couchcryptid/rainfall-explorer/internal/domain"
	"github.com/couchcryptid/rainfall-explorer/internal/observability"
	"github.com/couchcryptid/rainfall-explorer/internal/pipeline"
	"github.com/couchcryptid/rainfall-explorer/internal/scheduler"
)

// preloadTimeout bounds the startup preload of every map region.
const preloadTimeout = 30 * time.Minute

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry := domain.SouthDakota()
	if cfg.UnknownLocationFallback {
		registry.SetFallback(domain.StatewideKey)
		logger.Info("unknown locations fall back to the statewide point")
	}

	source := openmeteo.NewClient(openmeteo.Options{
		BaseURL:     cfg.ArchiveBaseURL,
		Timeout:     cfg.ArchiveTimeout,
		MinInterval: cfg.ArchiveMinInterval,
		Unit:        cfg.PrecipitationUnit,
		Timezone:    cfg.ArchiveTimezone,
	}, metrics, logger)

	cache := pipeline.NewRegionCache(source, archiveRange(cfg), metrics, logger)

	// Region publishing is feature-flagged via KAFKA_BROKERS.
	var publisher *kafkaadapter.Publisher
	if cfg.PublishingEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, metrics, logger)
		cache.SetObserver(publisher)
		logger.Info("region publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("region publishing disabled")
	}

	explorer := pipeline.NewExplorer(registry, cache, metrics, logger)
	sessions := pipeline.NewSessions(explorer)
	if !cfg.PreloadEnabled {
		explorer.ServeLazily()
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, explorer, api.NewHandler(explorer, sessions, logger), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load map geometry, then warm the cache for every region on it.
	sched := scheduler.New(explorer, nil, preloadTimeout, logger)
	go func() {
		loadBoundaries(ctx, cfg, registry, explorer, logger)
		if !cfg.PreloadEnabled || ctx.Err() != nil {
			return
		}
		if err := sched.Start(ctx); err != nil {
			logger.Error("preload scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// archiveRange queries from ARCHIVE_START_DATE through ARCHIVE_END_DATE, or
// through yesterday when no end is configured.
func archiveRange(cfg *config.Config) pipeline.DateRangeFunc {
	return func() domain.DateRange {
		r := domain.DefaultDateRange()
		r.Start = cfg.ArchiveStartDate
		if cfg.ArchiveEndDate != "" {
			r.End = cfg.ArchiveEndDate
		}
		return r
	}
}

func loadBoundaries(ctx context.Context, cfg *config.Config, registry *domain.Registry, explorer *pipeline.Explorer, logger *slog.Logger) {
	loader := boundary.NewLoader(cfg.ArchiveTimeout, logger)
	collection, err := loader.Load(ctx, cfg.BoundarySource, cfg.BoundaryStateCode)
	if err != nil {
		// The map stays unavailable; charts and the county preload still work.
		logger.Error("boundary load failed", "source", cfg.BoundarySource, "error", err)
		return
	}
	if added := collection.RegisterMissing(registry); len(added) > 0 {
		logger.Info("registered boundary regions at their centers", "count", len(added))
	}
	explorer.SetBoundaries(collection)
}
