package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "lease.db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.CORS.Origins)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, time.Hour, cfg.Audit.Interval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEASE_APP_ENV", "Production")
	t.Setenv("LEASE_HTTP_PORT", "9090")
	t.Setenv("LEASE_DB_PATH", "/var/lib/lease/lease.db")
	t.Setenv("LEASE_CORS_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("LEASE_AUDIT_INTERVAL", "15m")
	t.Setenv("LEASE_LOG_LEVEL", "debug")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.App.Env)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "/var/lib/lease/lease.db", cfg.DB.Path)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORS.Origins)
	assert.Equal(t, 15*time.Minute, cfg.Audit.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[http]
port = 7000

[cors]
origins = ["http://localhost:3000"]

[audit]
enabled = false
`), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins)
	assert.False(t, cfg.Audit.Enabled)

	// The environment still wins over the file
	t.Setenv("LEASE_HTTP_PORT", "7001")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.HTTP.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown env", "LEASE_APP_ENV", "staging"},
		{"port out of range", "LEASE_HTTP_PORT", "70000"},
		{"bad log level", "LEASE_LOG_LEVEL", "loud"},
		{"zero audit interval", "LEASE_AUDIT_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestNewLogger_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{App: AppConfig{Env: "production"}, Log: LogConfig{Level: "info"}}

	log := newLogger(cfg, &buf)
	log.Debug().Msg("hidden")
	log.Info().Str("lease_id", "L1").Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"lease_id":"L1"`)
	assert.Contains(t, out, `"service":"lease-engine"`)
}

func TestNewLogger_ConsoleInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{App: AppConfig{Env: "development"}, Log: LogConfig{Level: "debug"}}

	log := newLogger(cfg, &buf)
	log.Debug().Msg("tariff audit")

	out := buf.String()
	assert.Contains(t, out, "tariff audit")
	assert.NotContains(t, out, `"message"`)
}
