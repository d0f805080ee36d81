// Package main replays a scripted encounter with a seeded dice source and
// prints every trace, without touching the database.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tabletop/internal/config"
	"github.com/cory-johannsen/tabletop/internal/content"
	"github.com/cory-johannsen/tabletop/internal/observability"
	"github.com/cory-johannsen/tabletop/internal/replay"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	scriptPath := flag.String("script", "content/replays/fireball-ambush.yaml", "path to the replay script")
	seed := flag.Uint64("seed", 0, "dice seed used when the script sets none (0 = engine.seed, then 1)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "replay")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	script, err := replay.LoadScript(*scriptPath)
	if err != nil {
		logger.Fatal("loading script", zap.Error(err))
	}

	lib, err := content.Load(cfg.Engine, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer lib.Close()

	s := *seed
	if s == 0 {
		s = cfg.Engine.Seed
	}
	if s == 0 {
		s = 1
	}

	runner := replay.NewRunner(lib, logger, cfg.Engine.CriticalThreshold)
	if _, err := runner.Run(context.Background(), script, s, os.Stdout); err != nil {
		logger.Fatal("replay failed", zap.String("script", *scriptPath), zap.Error(err))
	}
}
