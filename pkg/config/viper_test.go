package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFile(t *testing.T) {
	v, err := Load(t.TempDir(), "missing")
	require.NoError(t, err)
	require.NotNil(t, v)

	t.Setenv("SERVER_PORT", "9100")
	assert.Equal(t, 9100, v.GetInt("server.port"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  port: 8123\nstream:\n  ping_interval: 5s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	v, err := Load(dir, "config")
	require.NoError(t, err)

	assert.Equal(t, 8123, v.GetInt("server.port"))
	assert.Equal(t, 5*time.Second, Duration(v, "stream.ping_interval", time.Minute))
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0o600))

	_, err := Load(dir, "config")
	assert.Error(t, err)
}

func TestDurationFallback(t *testing.T) {
	v, err := Load(t.TempDir(), "missing")
	require.NoError(t, err)

	v.Set("bad", "soon")
	assert.Equal(t, 3*time.Second, Duration(v, "bad", 3*time.Second))
	assert.Equal(t, 7*time.Second, Duration(v, "absent", 7*time.Second))
}

func TestGetEnv(t *testing.T) {
	t.Setenv("LIVE_CHAT_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("LIVE_CHAT_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetEnv("LIVE_CHAT_TEST_UNSET", "default"))
}
