package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "REDIS_URL", "TELEGRAM_TOKEN", "OPENAI_API_KEY", "DAYLOG_DATABASE_DRIVER"} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscriptionModel)
	assert.Equal(t, 3, cfg.Tracker.MaxRetries)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LockTTL)
	assert.Equal(t, 2*time.Minute, cfg.Telegram.RequestTimeout)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  sqlite_path: /var/lib/daylog/db.sqlite
tracker:
  timezone: UTC
  max_retries: 5
openai:
  temperature: 0
`), 0o600))
	t.Setenv("TELEGRAM_TOKEN", "tg-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "redis://:secret@cache:6380/2")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/var/lib/daylog/db.sqlite", cfg.Database.SQLitePath)
	assert.Equal(t, 5, cfg.Tracker.MaxRetries)
	assert.Equal(t, 0.0, cfg.OpenAI.Temperature)
	assert.Equal(t, "tg-token", cfg.Telegram.Token)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, RedisConfig{Addr: "cache:6380", Password: "secret", DB: 2, LockTTL: 2 * time.Minute}, cfg.Redis)
}

func TestLoadConfigDatabaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://bot:pw@db.internal:6543/daylog?sslmode=require")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "db.internal",
		Port:     6543,
		User:     "bot",
		Password: "pw",
		DBName:   "daylog",
		SSLMode:  "require",
	}, cfg.Database)
}

func TestLoadConfigPrefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAYLOG_DATABASE_DRIVER", "sqlite")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	clearEnv(t)

	t.Run("driver", func(t *testing.T) {
		t.Setenv("DAYLOG_DATABASE_DRIVER", "mongodb")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "unknown driver")
	})
	t.Run("database url", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "mysql://x@y/z")
		_, err := LoadConfig("")
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestTrackerLocation(t *testing.T) {
	loc, err := TrackerConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	_, err = TrackerConfig{Timezone: "Nowhere/Special"}.Location()
	assert.Error(t, err)
}
