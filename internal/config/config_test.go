package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "{}\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "better-end", cfg.Databases.MongoDatabase)
	assert.Equal(t, 10*time.Second, cfg.Databases.ServerSelection)
	assert.Equal(t, 60*time.Second, cfg.Databases.SocketTimeout)
	assert.Equal(t, "postgres", cfg.Databases.RelationalBackend)
	assert.Equal(t, 2000, cfg.Import.BatchSize)
	assert.Equal(t, 500.0, cfg.StaleOrders.MinOrderValue)
	assert.Equal(t, "Updated Address", cfg.StaleOrders.Address)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
databases:
  relational_backend: mysql
  mongo_database: orders-test
import:
  batch_size: 500
stale_orders:
  window_start: "2023-06-01"
  window_end: "2023-06-30"
  min_order_value: 100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Databases.RelationalBackend)
	assert.Equal(t, "orders-test", cfg.Databases.MongoDatabase)
	assert.Equal(t, 500, cfg.Import.BatchSize)
	assert.Equal(t, 100.0, cfg.StaleOrders.MinOrderValue)
}

func TestLoadConfigEnvWins(t *testing.T) {
	t.Setenv("DATABASE_URL_POSTGRESQL", "postgres://env-host:5432/db")
	t.Setenv("MONGO_DATABASE", "env-db")

	path := writeConfig(t, `
databases:
  postgres: "postgres://file-host:5432/db"
  mongo_database: file-db
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host:5432/db", cfg.Databases.Postgres)
	assert.Equal(t, "env-db", cfg.Databases.MongoDatabase)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "import:\n  batch_size: -1\n"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "stale_orders:\n  window_start: \"June 1\"\n"))
	assert.Error(t, err)

	// window end before start
	_, err = LoadConfig(writeConfig(t, "stale_orders:\n  window_start: \"2024-12-31\"\n  window_end: \"2024-01-01\"\n"))
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWindowParsesInclusiveRange(t *testing.T) {
	s := StaleOrdersConfig{WindowStart: "2024-01-01", WindowEnd: "2024-12-31"}
	start, end, err := s.Window()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), end)
}
