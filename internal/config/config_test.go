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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, defaultDatabasePort, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, defaultTickInterval, cfg.Crawl.TickInterval)
	assert.Equal(t, defaultMaxAutoGenerate, cfg.Crawl.MaxAutoGenerate)
	assert.False(t, cfg.Crawl.AutoGenerate)
	assert.Equal(t, defaultGenerationModel, cfg.Generation.Model)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
debug: true
server:
  port: 9090
database:
  host: db.internal
  user: cardpress
  dbname: cardpress
crawl:
  tick_interval: 30s
  auto_generate: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 30*time.Second, cfg.Crawl.TickInterval)
	assert.True(t, cfg.Crawl.AutoGenerate)
	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("CRAWL_TICK_INTERVAL", "15s")
	t.Setenv("CRAWL_AUTO_GENERATE", "true")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	path := writeConfigFile(t, `
database:
  host: file-host
  user: cardpress
  dbname: cardpress
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 15*time.Second, cfg.Crawl.TickInterval)
	assert.True(t, cfg.Crawl.AutoGenerate)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: "database.user is required",
		},
		{
			name:    "missing database name",
			mutate:  func(c *Config) { c.Database.DBName = "" },
			wantErr: "database.dbname is required",
		},
		{
			name:    "bad server port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "server.port must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			cfg.Database.Host = "localhost"
			cfg.Database.User = "cardpress"
			cfg.Database.DBName = "cardpress"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yml", GetConfigPath("config.yml"))

	t.Setenv("CONFIG_PATH", "/etc/cardpress/config.yml")
	assert.Equal(t, "/etc/cardpress/config.yml", GetConfigPath("config.yml"))
}
