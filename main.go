package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"momentum-signal-engine/config"
	"momentum-signal-engine/internal/analysis"
	"momentum-signal-engine/internal/api"
	"momentum-signal-engine/internal/cache"
	"momentum-signal-engine/internal/fetcher"
	"momentum-signal-engine/internal/filter"
	"momentum-signal-engine/internal/logging"
	"momentum-signal-engine/internal/optimizer"
	"momentum-signal-engine/internal/pipeline"
	"momentum-signal-engine/internal/queue"
	"momentum-signal-engine/internal/scoring"
	sigengine "momentum-signal-engine/internal/signal"
	"momentum-signal-engine/internal/taapi"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("Starting momentum signal engine")

	if cfg.TaapiConfig.APIKey == "" && !cfg.TaapiConfig.MockMode {
		logger.Fatal().Msg("TAAPI_API_KEY is required unless mock mode is enabled")
	}

	// Single provider queue: every indicator request in the process rides
	// this one instance, so the pacing guarantee holds globally.
	requestQueue := queue.New(cfg.QueueConfig.MinInterval(), logging.Component(logger, "request_queue"))

	tieredCache := cache.New(cache.Config{
		SnapshotTTL:   cfg.CacheConfig.SnapshotTTL(),
		SignalTTL:     cfg.CacheConfig.SignalTTL(),
		BulkTTL:       cfg.CacheConfig.BulkTTL(),
		Capacity:      cfg.CacheConfig.Capacity,
		SweepInterval: cfg.CacheConfig.SweepInterval(),
	}, logging.Component(logger, "tiered_cache"))
	defer tieredCache.Close()

	client := taapi.NewFromConfig(cfg.TaapiConfig, logging.Component(logger, "taapi"))
	dataFetcher := fetcher.New(
		client,
		requestQueue,
		tieredCache,
		cfg.TaapiConfig.Exchange,
		cfg.QueueConfig.RetryBackoff(),
		logging.Component(logger, "fetcher"),
	)

	thresholds := optimizer.NewThresholdStore(optimizer.DefaultThresholds())

	var stateStore optimizer.StateStore
	redisStore, err := optimizer.NewRedisStateStore(cfg.RedisConfig, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, optimizer state will not persist")
	} else if redisStore != nil {
		stateStore = redisStore
		defer redisStore.Close()
	}

	optim := optimizer.NewPerformanceOptimizer(cfg.OptimizerConfig, thresholds, stateStore, logger)
	optim.Restore(context.Background())

	recorder := analysis.NewSeriesRecorder(analysis.DefaultHistoryDepth)
	scorer := scoring.NewEntryQualityScorer(logger)
	engine := sigengine.NewDecisionEngine(logger)
	chain := filter.NewComplianceChain(cfg.FilterConfig, logger)

	pipe := pipeline.New(dataFetcher, tieredCache, recorder, scorer, engine, chain, thresholds, logger)

	server := api.NewServer(cfg.ServerConfig, pipe, requestQueue, tieredCache, optim, thresholds, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server exited with error")
	}
	logger.Info().Msg("Shutdown complete")
}
