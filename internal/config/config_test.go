package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: 127.0.0.1
  port: 9090
database:
  host: localhost
  port: 5433
  user: machiba
  password: secret
  dbname: machiba
  sslmode: require
auth:
  jwt_secret: "test-secret"
  token_ttl: "1h"
  api_keys:
    - "key-one"
line:
  channel_token: "token"
  channel_secret: "channel-secret"
analytics:
  default_days: 14
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
				assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, []string{"key-one"}, cfg.Auth.APIKeys)
				assert.Equal(t, "token", cfg.LINE.ChannelToken)
				assert.Equal(t, 14, cfg.Analytics.DefaultDays)
			},
		},
		{
			name: "defaults are applied",
			configFile: `
auth:
  jwt_secret: "test-secret"
database:
  host: localhost
  user: machiba
  password: secret
  dbname: machiba
`,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, "https://api.line.me", cfg.LINE.APIURL)
				assert.Equal(t, 8, cfg.LINE.MulticastPoolSize)
				assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxImageSize)
				assert.Equal(t, "ACCESS_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, 30, cfg.Analytics.DefaultDays)
				assert.Equal(t, 365, cfg.Analytics.MaxDays)
			},
		},
		{
			name: "missing jwt secret is rejected",
			configFile: `
database:
  host: localhost
  user: machiba
  password: secret
  dbname: machiba
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.configFile)

			cfg, err := LoadAPIConfig(path, t.TempDir())
			if tt.expectError {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.validate(t, cfg)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "machiba",
		Password: "secret",
		DBName:   "machiba",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5432 user=machiba password=secret dbname=machiba sslmode=require",
		cfg.DSN())
}
