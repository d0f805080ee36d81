// Package main provides the combat engine daemon: it drains the PostgreSQL
// command queue through the command service and publishes every trace.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/command"
	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/content"
	"github.com/cory-johannsen/tabletop/internal/feed"
	"github.com/cory-johannsen/tabletop/internal/game/dice"
	"github.com/cory-johannsen/tabletop/internal/observability"
	"github.com/cory-johannsen/tabletop/internal/server"
	"github.com/cory-johannsen/tabletop/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "engined")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	lib, err := content.Load(cfg.Engine, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer lib.Close()

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Health(ctx, 5*time.Second); err != nil {
		logger.Fatal("database health check", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	var src dice.Source
	if cfg.Engine.Seed != 0 {
		src = dice.NewSeededSource(cfg.Engine.Seed)
		logger.Warn("using seeded dice source", zap.Uint64("seed", cfg.Engine.Seed))
	} else {
		src = dice.NewCryptoSource()
	}

	svc := command.NewService(
		postgres.NewCombatantRepository(pool.DB()),
		postgres.NewNotifyPublisher(pool.DB(), cfg.Feed.TraceChannel),
		command.Env{
			Rules:             lib.Conditions,
			Source:            dice.NewLoggedRoller(src, logger),
			CriticalThreshold: cfg.Engine.CriticalThreshold,
		},
		logger,
		cfg.Engine.MaxRetries,
	)

	queue := postgres.NewCommandQueue(pool.DB(), cfg.Feed.CommandChannel)
	worker := feed.NewWorker(queue, svc, logger, cfg.Feed.BatchSize, cfg.Feed.PollInterval)
	listener := postgres.NewListener(pool.DB(), cfg.Feed.CommandChannel, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("command-worker", server.NewContextService(worker.Run))
	lc.Add("command-listener", server.NewContextService(func(ctx context.Context) error {
		return listener.Run(ctx, func(string) { worker.Notify() })
	}))

	logger.Info("engine ready",
		zap.String("command_channel", cfg.Feed.CommandChannel),
		zap.String("trace_channel", cfg.Feed.TraceChannel),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Error("engine stopped with error", zap.Error(err))
	}
}
