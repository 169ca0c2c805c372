package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "{prefix}_{run_id}_{pid}.log", cfg.Logging.NamePattern)
	assert.Equal(t, "GO", cfg.Schema.Separator)
	assert.Equal(t, "utf-8", cfg.Schema.Encoding)
	assert.True(t, cfg.Schema.StopOnError)
	assert.False(t, cfg.Schema.CommitOnPartialFailure)
	assert.Equal(t, config.DefaultConnection, cfg.Schema.Connection)
	assert.Equal(t, 60, cfg.Ingest.IntervalSeconds)
	assert.Equal(t, 3, cfg.API.Retry.MaxAttempts)
	assert.Equal(t, "SNAPPY", cfg.Export.Compression)
}

const sampleYAML = `
database:
  default:
    type: sqlserver
    host: ${DAYCHE_TEST_DB_HOST}
    port: 1433
    database: market
    user: sa
api:
  url: https://example.test/api
  key: secret
schema:
  stop_on_error: false
  separator: go
ingest:
  symbols: [BTCUSD, ETHUSD]
logging:
  level: DEBUG
`

func TestParseConfig(t *testing.T) {
	t.Setenv("DAYCHE_TEST_DB_HOST", "db.internal")
	t.Setenv("DAYCHE_API_KEY", "from-env")
	t.Setenv("DAYCHE_DATABASE_DEFAULT_PASSWORD", "P@ss")
	t.Setenv("DAYCHE_INGEST_SYMBOLS", "SOLUSD, ADAUSD")

	cfg, err := config.ParseConfig(config.EmbeddedConfig(sampleYAML))
	require.NoError(t, err)

	db, ok := cfg.Database["default"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sqlserver", db["type"])
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, "P@ss", db["password"])

	assert.Equal(t, "https://example.test/api", cfg.API.URL)
	assert.Equal(t, "from-env", cfg.API.Key)
	assert.False(t, cfg.Schema.StopOnError)
	assert.Equal(t, "go", cfg.Schema.Separator)
	assert.Equal(t, "utf-8", cfg.Schema.Encoding, "unset keys keep their defaults")
	assert.Equal(t, []string{"SOLUSD", "ADAUSD"}, cfg.Ingest.Symbols)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

func TestParseConfig_InvalidEnvValue(t *testing.T) {
	t.Setenv("DAYCHE_API_TIMEOUT_SECONDS", "soon")

	_, err := config.ParseConfig(config.EmbeddedConfig(sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DAYCHE_API_TIMEOUT_SECONDS")
}

func TestParseConfig_EmptySeparator(t *testing.T) {
	_, err := config.ParseConfig(config.EmbeddedConfig("schema:\n  separator: \"  \"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema.separator")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, exception.IsConfigFileNotFound(err))
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("migration:\n  dir: ./migrations\n"), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./migrations", cfg.Migration.Dir)
	assert.Equal(t, "schema_migrations", cfg.Migration.Table)
}
