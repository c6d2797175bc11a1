package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"marketplace_api/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"ENV", "JWT_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
	"STORAGE_DRIVER", "SEED_DEMO_USERS", "DATABASE_URL", "DB_NAME",
	"HTTP_HOST", "PORT", "CORS_ALLOWED_ORIGINS", "RABBITMQ_URL",
}

// unsetEnv clears the variables for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_EnvDefaults(t *testing.T) {
	unsetEnv(t, configEnv...)
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Tokens.Secret)
	assert.Equal(t, 15*time.Minute, cfg.Tokens.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Tokens.RefreshTokenTTL)
	assert.Equal(t, config.DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.SeedDemoUsers)
	assert.Equal(t, ":5000", cfg.HTTPServer.Address())
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
env: "prod"
tokens:
  secret: "file-secret"
  access_token_ttl: 5m
storage:
  driver: "postgres"
postgres:
  url: "postgres://u:p@localhost:5432/market"
http_server:
  host: "0.0.0.0"
  port: "8080"
`), 0o600)
	require.NoError(t, err)

	unsetEnv(t, configEnv...)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", "9090")

	cfg, err := config.Load(path)
	require.Error(t, err, "an empty JWT_SECRET overrides the file and must be rejected")

	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err = config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "env-secret", cfg.Tokens.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Tokens.AccessTokenTTL)
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTPServer.Address())
	assert.Equal(t, "postgres://u:p@localhost:5432/market", cfg.Postgres.DSN())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		path string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"JWT_SECRET": ""},
		},
		{
			name: "unknown driver",
			env:  map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "mongo"},
		},
		{
			name: "postgres without dsn",
			env:  map[string]string{"JWT_SECRET": "s", "STORAGE_DRIVER": "postgres", "DATABASE_URL": "", "DB_NAME": ""},
		},
		{
			name: "missing file",
			env:  map[string]string{"JWT_SECRET": "s"},
			path: filepath.Join(os.TempDir(), "does-not-exist", "config.yaml"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unsetEnv(t, configEnv...)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestPostgresDSN_FromFields(t *testing.T) {
	p := config.Postgres{
		Host:     "db",
		Port:     5432,
		User:     "u",
		Password: "p",
		DBName:   "market",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=u password=p database=market sslmode=disable", p.DSN())
}
