// Package config provides worker configuration loaded from an optional TOML
// settings file with environment variable overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sethvargo/go-envconfig"
)

// DefaultPath is where the settings file is looked for when no path is given.
const DefaultPath = "config/settings.toml"

// ErrInvalidSettings is returned when the settings file cannot be parsed.
var ErrInvalidSettings = errors.New("config: invalid settings file")

// Config holds all configuration for the worker process.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Processing ProcessingConfig `toml:"processing"`
	Logging    LoggingConfig    `toml:"logging"`
}

// StorageConfig controls where scratch files live and the optional S3 target
// for finished artifacts.
type StorageConfig struct {
	// ScratchDir is the directory for intermediate files.
	ScratchDir string `toml:"scratch_dir" env:"SCRATCH_DIR"`
	// S3 is the optional upload target for finished outputs.
	S3 S3Config `toml:"s3"`
}

// S3Config holds the optional S3 upload settings. Credentials are only read
// from the environment, never from the settings file.
type S3Config struct {
	Bucket          string `toml:"bucket" env:"S3_BUCKET"`
	Region          string `toml:"region" env:"S3_REGION"`
	Endpoint        string `toml:"endpoint" env:"S3_ENDPOINT"`
	AccessKeyID     string `toml:"-" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"-" env:"AWS_SECRET_ACCESS_KEY"`
}

// ProcessingConfig carries values consumed by the external supervisor that
// launches worker processes. The worker itself enforces no timeout; a job
// runs to success or fatal failure.
type ProcessingConfig struct {
	MaxWorkers     int `toml:"max_workers" env:"MAX_WORKERS"`
	TimeoutSeconds int `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`   // "debug", "info", "warn", "error"
	Format string `toml:"format" env:"LOG_FORMAT"` // "json" or "text"
}

// Default returns the built-in configuration used when neither the settings
// file nor the environment provides a value.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			ScratchDir: "/tmp/framemill",
		},
		Processing: ProcessingConfig{
			MaxWorkers:     4,
			TimeoutSeconds: 600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the settings file at path (if it exists) and then applies
// environment variable overrides. An empty path falls back to DefaultPath;
// a missing file is not an error, the environment alone is sufficient.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from the operator's command line
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSettings, path, err)
		}
	case os.IsNotExist(err):
		// Environment-only configuration.
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// S3Enabled returns true if an S3 upload target is configured.
func (c *Config) S3Enabled() bool {
	return c.Storage.S3.Bucket != "" && c.Storage.S3.Region != ""
}

// NewLogger creates a structured logger based on the configuration.
// When the format is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs. Logs go to stderr so the
// job result envelope on stdout stays machine-parseable.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.Logging.Level)

	var handler slog.Handler
	if strings.ToLower(c.Logging.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with credentials masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{ScratchDir: %s, S3Bucket: %s, S3Region: %s, MaxWorkers: %d, TimeoutSeconds: %d, LogFormat: %s, LogLevel: %s}",
		c.Storage.ScratchDir,
		c.Storage.S3.Bucket,
		c.Storage.S3.Region,
		c.Processing.MaxWorkers,
		c.Processing.TimeoutSeconds,
		c.Logging.Format,
		c.Logging.Level,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
