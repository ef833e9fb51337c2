package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
server:
  port: 8080
admin:
  jwt_secret: "0123456789abcdef0123456789abcdef"
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "mock", cfg.Lock.Type)
	assert.Equal(t, 5*time.Second, cfg.ActuationTimeout())
	assert.Equal(t, time.Hour, cfg.AdminTokenExpiry())
	assert.Equal(t, 7*24*time.Hour, cfg.SessionMaxAge())
	assert.Equal(t, "blaaplanet_locker_sessions", cfg.Session.CookieName)
	assert.Equal(t, "cookie", cfg.Session.Backend)
	assert.Len(t, cfg.Lockers.Zones, 3)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
	assert.Empty(t, cfg.Database.Host)
}

func TestParse_Validation(t *testing.T) {
	t.Run("Missing secret", func(t *testing.T) {
		_, err := Parse([]byte("server:\n  port: 8080\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "JWT secret is required")
	})

	t.Run("Bad zone", func(t *testing.T) {
		_, err := Parse([]byte(minimalYAML + "lockers:\n  zones:\n    - zone: ab\n      count: 3\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "single upper-case letter")
	})

	t.Run("Database requires user", func(t *testing.T) {
		_, err := Parse([]byte(minimalYAML + "database:\n  host: db\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database user is required")
	})

	t.Run("Unknown session backend", func(t *testing.T) {
		_, err := Parse([]byte(minimalYAML + "session:\n  backend: redis\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported session backend")
	})

	t.Run("Invalid port", func(t *testing.T) {
		_, err := Parse([]byte("admin:\n  jwt_secret: \"0123456789abcdef0123456789abcdef\"\n"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGetDatabaseConnectionString(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "database:\n  host: db\n  user: u\n  password: p\n  database: lockers\n"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/lockers?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestPricing_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML + "billing:\n  rate_per_hour: 25\n  overstay_block_minutes: 15\n"))
	require.NoError(t, err)

	p := cfg.Pricing()
	assert.Equal(t, int32(25), p.RatePerHour)
	assert.Equal(t, int32(15), p.OverstayRate)
	assert.Equal(t, 15*time.Minute, p.OverstayBlock)
	assert.NoError(t, p.Validate())
}
