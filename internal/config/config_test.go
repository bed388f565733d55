package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Auth.AllowGuest)
	assert.False(t, cfg.Auth.GitHub.Enabled())
	assert.Equal(t, "http://localhost:8080/api", cfg.Client.BaseURL)
}

func TestFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  port: 9000
storage:
  driver: memory
auth:
  token_ttl: 2h
  github:
    client_id: id
    client_secret: secret
log:
  level: debug
`), 0o600))

	t.Setenv("STASH_SERVER_PORT", "9100")
	t.Setenv("STASH_AUTH_ALLOW_GUEST", "false")

	cfg, err := Load(New(), file)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.Auth.AllowGuest)
	assert.True(t, cfg.Auth.GitHub.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Storage.SQLitePath = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"ses without from", func(c *Config) { c.Notify.SES.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	ok := base()
	assert.NoError(t, ok.Validate())
}
