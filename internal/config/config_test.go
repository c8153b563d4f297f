package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TODO_CONFIG_FILE", path)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TODO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.API.ListenAddress)
	assert.Equal(t, 10*time.Second, cfg.API.TaskCacheTTL)
	assert.Equal(t, 50, cfg.API.ActivityLimit)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, "memory", cfg.CacheMode)
	assert.Equal(t, 1000, cfg.WebSocket.MaxConnections)
	assert.Equal(t, 64, cfg.WebSocket.SendBufferSize)
	assert.Equal(t, 100, cfg.WebSocket.RateLimit.Burst)
	assert.True(t, cfg.WebSocket.RateLimit.PerIP)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.JWTExpiration)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "todoboard", cfg.Metrics.Namespace)
}

func TestLoad_FromFile(t *testing.T) {
	writeConfig(t, `
environment: production
api:
  listen_address: ":9090"
  activity_limit: 25
websocket:
  max_connections: 50
  rate_limit:
    burst: 10
`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, ":9090", cfg.API.ListenAddress)
	assert.Equal(t, 25, cfg.API.ActivityLimit)
	assert.Equal(t, 50, cfg.WebSocket.MaxConnections)
	assert.Equal(t, 10, cfg.WebSocket.RateLimit.Burst)
	// Untouched keys keep their defaults
	assert.Equal(t, 64, cfg.WebSocket.SendBufferSize)
}

func TestLoad_EnvExpansion(t *testing.T) {
	writeConfig(t, `
database:
  dsn: "${TEST_BOARD_DSN:-postgres://localhost/fallback}"
auth:
  jwt_secret: "${TEST_BOARD_SECRET:-}"
`)
	t.Setenv("TEST_BOARD_SECRET", "sekrit")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/fallback", cfg.Database.DSN)
	assert.Equal(t, "sekrit", cfg.Auth.JWTSecret)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TODO_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("TODO_API_LISTEN_ADDRESS", ":7070")
	t.Setenv("JWT_SECRET", "from-alias")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.API.ListenAddress)
	assert.Equal(t, "from-alias", cfg.Auth.JWTSecret)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_EXPAND_A", "hello")

	assert.Equal(t, "hello", expandEnvVars("${TEST_EXPAND_A}"))
	assert.Equal(t, "hello-world", expandEnvVars("${TEST_EXPAND_A}-${TEST_EXPAND_B:-world}"))
	assert.Equal(t, "", expandEnvVars("${TEST_EXPAND_B}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}
