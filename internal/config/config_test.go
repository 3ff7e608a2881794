package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8081
  env: production
database:
  driver: mysql
  url: "user:pass@tcp(localhost:3306)/seats?parseTime=true"
sync:
  enabled: false
  schedule: "*/10 * * * *"
  mark_renewal_overdue: false
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, "*/10 * * * *", cfg.Sync.Schedule)
	assert.False(t, cfg.Sync.MarkRenewalOverdue)
	assert.True(t, cfg.IsProduction())
	// Не заданные в файле поля остаются по умолчанию
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8081
database:
  driver: postgres
  url: "postgres://localhost/seats"
`)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", "file:override.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SYNC_SCHEDULE", "@every 1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:override.db", cfg.Database.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
}

func TestLoadEnvOnlyWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "postgres://localhost/seats")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoadFailsWithoutFileAndDatabaseURL(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = "oracle"
	cfg.Database.DSN = "x"
	assert.Error(t, cfg.Validate())
}

func TestInvalidPortFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "postgres://localhost/seats")
	t.Setenv("SERVER_PORT", "abc")

	_, err := Load()
	assert.Error(t, err)
}
