package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Relay.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Stream.PingInterval)
	assert.Equal(t, 16, cfg.Stream.BufferSize)
	assert.Equal(t, 500, cfg.Chat.MaxMessageLength)
	assert.Equal(t, 40, cfg.Chat.DefaultHistoryLimit)
	assert.Equal(t, 100, cfg.Chat.MaxHistoryLimit)
	assert.Equal(t, 30*time.Second, cfg.Shutdown.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Redis.ReadTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", t.TempDir())
	t.Setenv("PORT", "9999")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("RELAY_ENABLED", "true")
	t.Setenv("STREAM_PING_INTERVAL", "2s")
	t.Setenv("STREAM_BUFFER_SIZE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Stream.PingInterval)
	assert.Equal(t, 1, cfg.Stream.BufferSize)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("cache:\n  enabled: true\n  ttl: 1m\nchat:\n  max_message_length: 140\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("CONFIG_PATH", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 140, cfg.Chat.MaxMessageLength)
}
