package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatlog/internal/chat"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabase, EnvBatchSize, EnvLogLevel} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir()) // no stray .env
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "chatlog.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Database.MaxConns)
	assert.Equal(t, 50, cfg.Search.BatchSize)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "chatlog.yaml", `
database:
  path: /var/lib/chatlog/log.db
  max_conns: 6
search:
  batch_size: 25
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/chatlog/log.db", cfg.Database.Path)
	assert.Equal(t, 6, cfg.Database.MaxConns)
	assert.Equal(t, 25, cfg.Search.BatchSize)
	assert.Equal(t, "json", cfg.Logging.Format)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_TOML_PartialKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "chatlog.toml", `
[search]
batch_size = 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Search.BatchSize)
	assert.Equal(t, "chatlog.db", cfg.Database.Path, "unset keys keep defaults")
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "chatlog.yaml", "search:\n  batch_size: 10\n")

	t.Setenv(EnvDatabase, "/tmp/override.db")
	t.Setenv(EnvBatchSize, "75")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 75, cfg.Search.BatchSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	writeFile(t, ".", ".env", EnvDatabase+"=from-dotenv.db\n")
	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv(EnvDatabase))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.db", cfg.Database.Path)
}

func TestLoad_BadBatchSizeEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBatchSize, "lots")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "chatlog.ini", "x=1")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "chatlog.yaml", "database: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode YAML")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"pool too small", func(c *Config) { c.Database.MaxConns = 1 }, "max_conns"},
		{"zero batch", func(c *Config) { c.Search.BatchSize = 0 }, "batch_size"},
		{"batch too large", func(c *Config) { c.Search.BatchSize = chat.MaxBatchSize + 1 }, "at most"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}

func TestEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	ec := cfg.EngineConfig(1234)

	assert.Equal(t, "chatlog.db", ec.Path)
	assert.Equal(t, 4, ec.MaxConns)
	assert.Equal(t, 50, ec.BatchSize)
	assert.Equal(t, int64(1234), ec.SessionStart)
}
