package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadFile tests env and file loading with various scenarios
func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, ":8080", cfg.Server.Addr())
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, DefaultDatasetSource, cfg.Dataset.Source)
				assert.False(t, cfg.Dataset.Watch)
				assert.Equal(t, 500*time.Millisecond, cfg.Dataset.WatchDebounce)
				assert.Equal(t, 5, cfg.Dataset.PreviewRows)

				assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.EnableCORS)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 50.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, 100, cfg.Security.RateLimit.Burst)
				assert.Equal(t, DefaultChartAssetsHost, cfg.Security.ChartAssetsHost)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
				assert.True(t, cfg.Telemetry.MetricsEnabled)
				assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)

				assert.Equal(t, 1024, cfg.WebSocket.ReadBufferSize)
				assert.Equal(t, int64(4096), cfg.WebSocket.MaxMessageSize)
			},
		},
		{
			name: "custom environment variables",
			env: map[string]string{
				"ABPULSE_SERVER_PORT":              "9090",
				"ABPULSE_SERVER_READ_TIMEOUT":      "30s",
				"ABPULSE_DATASET_SOURCE":           "sheets://abc/A:F",
				"ABPULSE_DATASET_WATCH":            "true",
				"ABPULSE_DATASET_PREVIEW_ROWS":     "10",
				"ABPULSE_SECURITY_ALLOWED_ORIGINS": "http://example.com,https://example.com",
				"ABPULSE_LOGGING_LEVEL":            "debug",
				"ABPULSE_LOGGING_FORMAT":           "text",
				"ABPULSE_TELEMETRY_TRACE_EXPORTER": "stdout",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "sheets://abc/A:F", cfg.Dataset.Source)
				assert.True(t, cfg.Dataset.Watch)
				assert.Equal(t, 10, cfg.Dataset.PreviewRows)
				assert.Equal(t, []string{"http://example.com", "https://example.com"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format) // validate() forces json
				assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
			},
		},
		{
			name: "file values fill in where env is unset",
			file: `
server:
  port: 7070
  shutdown_timeout: 5s
dataset:
  source: /srv/data/ab.xlsx
  sheet: Campaigns
  watch: true
logging:
  level: warn
`,
			env: map[string]string{"ABPULSE_LOGGING_LEVEL": "error"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "/srv/data/ab.xlsx", cfg.Dataset.Source)
				assert.Equal(t, "Campaigns", cfg.Dataset.Sheet)
				assert.True(t, cfg.Dataset.Watch)
				assert.Equal(t, "error", cfg.Logging.Level, "env wins over file")
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "defaults survive")
			},
		},
		{
			name: "file switches can turn defaults off",
			file: `
security:
  enable_cors: false
  rate_limit:
    enabled: false
telemetry:
  metrics_enabled: false
websocket:
  max_message_size: 8192
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Security.EnableCORS)
				assert.False(t, cfg.Security.RateLimit.Enabled)
				assert.False(t, cfg.Telemetry.MetricsEnabled)
				assert.Equal(t, int64(8192), cfg.WebSocket.MaxMessageSize)
				assert.False(t, cfg.Dataset.Watch, "absent switch keeps default")
			},
		},
		{
			name: "env switch wins over file switch",
			file: `
security:
  enable_cors: false
`,
			env: map[string]string{"ABPULSE_SECURITY_ENABLE_CORS": "true"},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Security.EnableCORS)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"ABPULSE_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "zero port number",
			env:     map[string]string{"ABPULSE_SERVER_PORT": "0"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"ABPULSE_SERVER_READ_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "unknown trace exporter",
			env:     map[string]string{"ABPULSE_TELEMETRY_TRACE_EXPORTER": "jaeger"},
			wantErr: true,
		},
		{
			name:    "unknown log output",
			env:     map[string]string{"ABPULSE_LOGGING_OUTPUT": "syslog"},
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			file:    "server: [port",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_ConfigFileFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 6060\n"), 0o644))
	t.Setenv("ABPULSE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Server.Port)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("ABPULSE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultDatasetSource, cfg.Dataset.Source)
	assert.Equal(t, DefaultPreviewRows, cfg.Dataset.PreviewRows)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty dataset source", func(c *Config) { c.Dataset.Source = "  " }},
		{"negative preview rows", func(c *Config) { c.Dataset.PreviewRows = -1 }},
		{"no origins with cors", func(c *Config) { c.Security.AllowedOrigins = nil }},
		{"zero rate limit", func(c *Config) { c.Security.RateLimit.RPS = 0 }},
		{"sample ratio out of range", func(c *Config) { c.Telemetry.SampleRatio = 2 }},
		{"zero write timeout", func(c *Config) { c.Server.WriteTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}
