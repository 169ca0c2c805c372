package gorm_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

func TestGetDialectorFactory_NotInstalled(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("oracle")
	require.Error(t, err)
	assert.True(t, exception.IsDriverNotInstalled(err))
	assert.Contains(t, gormadapter.RegisteredDialects(), "sqlite")
}

func TestProvider_UnknownConnection(t *testing.T) {
	p := gormadapter.NewProvider(config.NewConfig(), logger.Discard())
	_, err := p.GetConnection("reporting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'reporting' not found")
}

func TestProvider_DriverNotInstalled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Database = map[string]interface{}{
		"default": map[string]interface{}{"type": "oracle", "host": "db"},
	}
	p := gormadapter.NewProvider(cfg, logger.Discard())

	_, err := p.GetConnection("default")
	require.Error(t, err)
	assert.True(t, exception.IsDriverNotInstalled(err))
}

func TestProvider_SQLiteLifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Database = map[string]interface{}{
		"default": map[string]interface{}{
			"type":       "sqlite",
			"database":   filepath.Join(t.TempDir(), "quotes.db"),
			"autocommit": true,
		},
	}
	p := gormadapter.NewProvider(cfg, logger.Discard())

	conn, err := p.GetConnection("default")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Type())

	again, err := p.GetConnection("default")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	reopened, err := p.ForceReconnect("default")
	require.NoError(t, err)
	assert.NotSame(t, conn, reopened)

	require.NoError(t, p.CloseAll())
}
