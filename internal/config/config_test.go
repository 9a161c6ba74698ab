package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "sqlite", cfg.StoreBackend)
	require.Equal(t, "any", cfg.TriggerPolicy)
	require.Equal(t, time.Second, cfg.PollInterval())
	require.Equal(t, 24*time.Hour, cfg.SignalTTL())
	require.Equal(t, 10*time.Second, cfg.GatewayTimeout())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("does-not-exist.yaml")
	require.NoError(t, err)
	require.Equal(t, Default().Port, cfg.Port)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
store_backend: redis
redis_addr: redis:6379
poll_interval_ms: 250
trigger_policy: all
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "redis", cfg.StoreBackend)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval())
	require.Equal(t, "all", cfg.TriggerPolicy)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("POLL_INTERVAL_MS", "500")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "7070", cfg.Port)
	require.Equal(t, "redis", cfg.StoreBackend)
	require.Equal(t, 500*time.Millisecond, cfg.PollInterval())
}
