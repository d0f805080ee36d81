// Package config provides Viper-based configuration loading for the combat engine.
package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// EngineConfig holds rule engine settings.
type EngineConfig struct {
	// EncumbranceMode is "standard" or "variant".
	EncumbranceMode string `mapstructure:"encumbrance_mode"`
	// CriticalThreshold is the natural d20 roll that scores a critical hit.
	CriticalThreshold int `mapstructure:"critical_threshold"`
	// Seed makes every roll reproducible when non-zero; zero uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
	// MaxRetries bounds re-resolution after an optimistic version conflict.
	MaxRetries int `mapstructure:"max_retries"`
	// FormulaInstructionLimit caps the Lua instructions one formula may execute.
	FormulaInstructionLimit int `mapstructure:"formula_instruction_limit"`
	// ContentDir holds the conditions, creatures, equipment and formulas directories.
	ContentDir string `mapstructure:"content_dir"`
}

// ConditionsDir returns the directory of condition definitions.
func (e EngineConfig) ConditionsDir() string { return filepath.Join(e.ContentDir, "conditions") }

// CreaturesDir returns the directory of creature templates.
func (e EngineConfig) CreaturesDir() string { return filepath.Join(e.ContentDir, "creatures") }

// EquipmentDir returns the directory holding weapons, armor and items.
func (e EngineConfig) EquipmentDir() string { return filepath.Join(e.ContentDir, "equipment") }

// FormulasDir returns the directory of shared Lua formula helpers.
func (e EngineConfig) FormulasDir() string { return filepath.Join(e.ContentDir, "formulas") }

// FeedConfig holds command queue and trace fan-out settings.
type FeedConfig struct {
	// CommandChannel is the LISTEN channel signalled when commands are queued.
	CommandChannel string `mapstructure:"command_channel"`
	// TraceChannel is the NOTIFY channel traces are published on.
	TraceChannel string `mapstructure:"trace_channel"`
	// PollInterval is the fallback queue poll period when no notification arrives.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// BatchSize is the maximum number of commands claimed per poll.
	BatchSize int `mapstructure:"batch_size"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Feed     FeedConfig     `mapstructure:"feed"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateEngine(c.Engine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateFeed(c.Feed); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateEngine(e EngineConfig) error {
	var errs []string
	if e.EncumbranceMode != "standard" && e.EncumbranceMode != "variant" {
		errs = append(errs, fmt.Sprintf("engine.encumbrance_mode must be one of [standard, variant], got %q", e.EncumbranceMode))
	}
	if e.CriticalThreshold < 2 || e.CriticalThreshold > 20 {
		errs = append(errs, fmt.Sprintf("engine.critical_threshold must be 2-20, got %d", e.CriticalThreshold))
	}
	if e.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("engine.max_retries must be >= 0, got %d", e.MaxRetries))
	}
	if e.FormulaInstructionLimit < 1 {
		errs = append(errs, fmt.Sprintf("engine.formula_instruction_limit must be >= 1, got %d", e.FormulaInstructionLimit))
	}
	if e.ContentDir == "" {
		errs = append(errs, "engine.content_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// channelName matches identifiers usable unquoted in LISTEN and NOTIFY.
var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func validateFeed(f FeedConfig) error {
	var errs []string
	if !channelName.MatchString(f.CommandChannel) {
		errs = append(errs, fmt.Sprintf("feed.command_channel must be a lowercase identifier, got %q", f.CommandChannel))
	}
	if !channelName.MatchString(f.TraceChannel) {
		errs = append(errs, fmt.Sprintf("feed.trace_channel must be a lowercase identifier, got %q", f.TraceChannel))
	}
	if f.PollInterval <= 0 {
		errs = append(errs, "feed.poll_interval must be positive")
	}
	if f.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("feed.batch_size must be >= 1, got %d", f.BatchSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with TABLETOP_ prefix
	v.SetEnvPrefix("TABLETOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tabletop")
	v.SetDefault("database.password", "tabletop")
	v.SetDefault("database.name", "tabletop")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("engine.encumbrance_mode", "standard")
	v.SetDefault("engine.critical_threshold", 20)
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.formula_instruction_limit", 10000)
	v.SetDefault("engine.content_dir", "content")

	v.SetDefault("feed.command_channel", "combat_commands")
	v.SetDefault("feed.trace_channel", "combat_traces")
	v.SetDefault("feed.poll_interval", "2s")
	v.SetDefault("feed.batch_size", 32)
}
