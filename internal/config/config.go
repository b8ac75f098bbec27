// Package config loads brain configuration from an optional YAML file with
// BRAIN_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds the complete brain configuration
type Config struct {
	// StateDir holds the JSON documents (file backend) and the writer lock
	// Default: "docs"
	StateDir string `yaml:"state_dir"`

	// WorkflowDir is scanned for sprint-*/.brain-state.json records
	// Default: "docs/sprints"
	WorkflowDir string `yaml:"workflow_dir"`

	// LogLevel is one of debug, info, warn, error
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	Storage  StorageConfig  `yaml:"storage"`
	Events   EventsConfig   `yaml:"events"`
	Observer ObserverConfig `yaml:"observer"`
}

// StorageConfig selects the document store backend
type StorageConfig struct {
	// Backend is file, sqlite, postgres or memory
	// Default: "file"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend
	// Default: "<state_dir>/brain.db"
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresURL is the connection string for the postgres backend
	PostgresURL string `yaml:"postgres_url"`
}

// EventsConfig configures the activity event feed
type EventsConfig struct {
	// RedisURL enables the Redis stream publisher when set
	RedisURL string `yaml:"redis_url"`

	// Stream is the Redis stream key
	// Default: "brain_events"
	Stream string `yaml:"stream"`

	// MaxLen caps the stream length (approximate trimming)
	// Default: 10000
	MaxLen int64 `yaml:"max_len"`
}

// ObserverConfig configures the polling watch loop
type ObserverConfig struct {
	// WatchInterval is the time between observer checks
	// Default: 30s, Range: 1s-1h
	WatchInterval time.Duration `yaml:"watch_interval"`
}

// Default returns a configuration with the defaults documented on each field
func Default() *Config {
	return &Config{
		StateDir:    "docs",
		WorkflowDir: filepath.Join("docs", "sprints"),
		LogLevel:    "info",
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Events: EventsConfig{
			Stream: "brain_events",
			MaxLen: 10000,
		},
		Observer: ObserverConfig{
			WatchInterval: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path (if any), applies BRAIN_* environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Use defaults
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := decodeYAML(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides fields from the environment.
//
// Environment variables:
//   - BRAIN_STATE_DIR
//   - BRAIN_WORKFLOW_DIR
//   - BRAIN_LOG_LEVEL
//   - BRAIN_STORAGE_BACKEND
//   - BRAIN_SQLITE_PATH
//   - BRAIN_POSTGRES_URL
//   - BRAIN_REDIS_URL
//   - BRAIN_EVENTS_STREAM
//   - BRAIN_EVENTS_MAX_LEN
//   - BRAIN_WATCH_INTERVAL (Go duration, e.g. "45s")
func (c *Config) applyEnv() error {
	parseEnvString("BRAIN_STATE_DIR", &c.StateDir)
	parseEnvString("BRAIN_WORKFLOW_DIR", &c.WorkflowDir)
	parseEnvString("BRAIN_LOG_LEVEL", &c.LogLevel)
	parseEnvString("BRAIN_STORAGE_BACKEND", &c.Storage.Backend)
	parseEnvString("BRAIN_SQLITE_PATH", &c.Storage.SQLitePath)
	parseEnvString("BRAIN_POSTGRES_URL", &c.Storage.PostgresURL)
	parseEnvString("BRAIN_REDIS_URL", &c.Events.RedisURL)
	parseEnvString("BRAIN_EVENTS_STREAM", &c.Events.Stream)
	if err := parseEnvInt64("BRAIN_EVENTS_MAX_LEN", &c.Events.MaxLen); err != nil {
		return err
	}
	return parseEnvDuration("BRAIN_WATCH_INTERVAL", &c.Observer.WatchInterval)
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	if c.WorkflowDir == "" {
		return fmt.Errorf("workflow_dir is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("storage.postgres_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of file, sqlite, postgres, memory (got %q)", c.Storage.Backend)
	}

	if c.Events.RedisURL != "" && c.Events.Stream == "" {
		return fmt.Errorf("events.stream is required when events.redis_url is set")
	}
	if c.Events.MaxLen < 0 {
		return fmt.Errorf("events.max_len cannot be negative (got %d)", c.Events.MaxLen)
	}

	if c.Observer.WatchInterval < time.Second {
		return fmt.Errorf("observer.watch_interval too fast (minimum 1s), got %v", c.Observer.WatchInterval)
	}
	if c.Observer.WatchInterval > time.Hour {
		return fmt.Errorf("observer.watch_interval too slow (maximum 1h), got %v", c.Observer.WatchInterval)
	}
	return nil
}

// SQLitePath returns the sqlite database path, defaulting into StateDir
func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.StateDir, "brain.db")
}

// SlogLevel returns the configured log level
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level must be debug, info, warn or error (got %q)", s)
}
