// Package observability builds the zap loggers used by engined, migrate and
// replay, and the fields that tie an entry to one combat command.
package observability

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/tabletop/internal/config"
)

// NewLogger creates the process logger from the logging section of the
// engine config. Every entry carries a "service" field naming the binary.
// JSON output is unsampled so every debug-level dice draw of a resolution
// survives; console output is for local replays.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
		zapCfg.Sampling = nil
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if service != "" {
		zapCfg.InitialFields = map[string]any{"service": service}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// CommandFields identifies a queued command and the combatant it targets.
// The feed worker and command service log with the same keys so one
// command can be followed from claim to commit.
func CommandFields(id uuid.UUID, combatantID string) []zap.Field {
	return []zap.Field{
		zap.String("command_id", id.String()),
		zap.String("combatant", combatantID),
	}
}
