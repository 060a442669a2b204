// Package config handles configuration loading and validation for chatlog.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/engine"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override the file.
const (
	EnvDatabase  = "CHATLOG_DB"
	EnvBatchSize = "CHATLOG_BATCH_SIZE"
	EnvLogLevel  = "CHATLOG_LOG_LEVEL"
)

// Config is the complete chatlog configuration.
type Config struct {
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Search   SearchConfig   `toml:"search" yaml:"search"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
}

// DatabaseConfig locates the store and sizes its connection pool.
type DatabaseConfig struct {
	Path     string `toml:"path" yaml:"path"`
	MaxConns int    `toml:"max_conns" yaml:"max_conns"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	BatchSize int `toml:"batch_size" yaml:"batch_size"`
}

// LoggingConfig selects log verbosity and handler.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // text or json
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:     "chatlog.db",
			MaxConns: 4,
		},
		Search: SearchConfig{
			BatchSize: engine.DefaultBatchSize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplyEnvOverrides replaces file values with CHATLOG_* variables that are
// set.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvBatchSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, EnvBatchSize, v)
		}
		c.Search.BatchSize = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Database.MaxConns < 2 {
		errs = append(errs, fmt.Errorf("database.max_conns must be at least 2, got %d", c.Database.MaxConns))
	}
	switch {
	case c.Search.BatchSize <= 0:
		errs = append(errs, fmt.Errorf("search.batch_size must be positive, got %d", c.Search.BatchSize))
	case c.Search.BatchSize > chat.MaxBatchSize:
		errs = append(errs, fmt.Errorf("search.batch_size must be at most %d, got %d", chat.MaxBatchSize, c.Search.BatchSize))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// EngineConfig maps the configuration onto engine settings.
func (c *Config) EngineConfig(sessionStart int64) engine.Config {
	return engine.Config{
		Path:         c.Database.Path,
		MaxConns:     c.Database.MaxConns,
		BatchSize:    c.Search.BatchSize,
		SessionStart: sessionStart,
	}
}
