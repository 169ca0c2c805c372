package migration_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/dayche/pkg/batch/component/tasklet/migration"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

var migrations = fstest.MapFS{
	"sqlite/000001_create_quotes.up.sql":   {Data: []byte("CREATE TABLE quotes (symbol TEXT NOT NULL);")},
	"sqlite/000001_create_quotes.down.sql": {Data: []byte("DROP TABLE quotes;")},
	"sqlite/000002_index_quotes.up.sql":    {Data: []byte("CREATE INDEX ix_quotes_symbol ON quotes (symbol);")},
	"sqlite/000002_index_quotes.down.sql":  {Data: []byte("DROP INDEX ix_quotes_symbol;")},
}

func newSQLiteProvider(t *testing.T) *gormadapter.Provider {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database = map[string]interface{}{
		"default": map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), "market.db"),
		},
	}
	p := gormadapter.NewProvider(cfg, logger.Discard())
	t.Cleanup(func() { p.CloseAll() })
	return p
}

func tableExists(t *testing.T, p *gormadapter.Provider, name string) bool {
	t.Helper()
	conn, err := p.GetConnection("default")
	require.NoError(t, err)
	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	var n int
	require.NoError(t, sqlDB.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n))
	return n == 1
}

func TestMigrationTasklet_UpAndDown(t *testing.T) {
	p := newSQLiteProvider(t)
	ctx := context.Background()
	cfg := config.NewConfig().Migration

	up := migration.NewMigrationTasklet(p, cfg, migrations, nil, "up", logger.Discard())
	se := model.NewJobExecution("migrate", nil).NewStepExecution("up")

	status, err := up.Execute(ctx, se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.EqualValues(t, 2, se.ExecutionContext["migration.version"])
	assert.True(t, tableExists(t, p, "quotes"))
	assert.True(t, tableExists(t, p, "schema_migrations"))

	// Running again is a no-op.
	status, err = up.Execute(ctx, model.NewJobExecution("migrate", nil).NewStepExecution("up"))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	down := migration.NewMigrationTasklet(p, cfg, migrations, nil, "down", logger.Discard())
	status, err = down.Execute(ctx, model.NewJobExecution("migrate", nil).NewStepExecution("down"))
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.False(t, tableExists(t, p, "quotes"))
}

func TestMigrationTasklet_ReadsVersionOnReopenedConnection(t *testing.T) {
	p := newSQLiteProvider(t)
	var conns []database.DBConnection
	provider := migration.MigratorProviderFunc(func(c database.DBConnection) migration.Migrator {
		conns = append(conns, c)
		return migration.NewMigrator(c, nil)
	})

	tasklet := migration.NewMigrationTasklet(p, config.NewConfig().Migration, migrations, provider, "up", nil)
	se := model.NewJobExecution("migrate", nil).NewStepExecution("up")
	status, err := tasklet.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	require.Len(t, conns, 2)
	assert.NotSame(t, conns[0], conns[1], "version must not be read through the pool closed by the migration")
	assert.EqualValues(t, 2, se.ExecutionContext["migration.version"])
	assert.Equal(t, false, se.ExecutionContext["migration.dirty"])
	assert.True(t, tableExists(t, p, "quotes"), "connection is usable after the step")
}

func TestMigrationTasklet_UnknownCommand(t *testing.T) {
	p := newSQLiteProvider(t)
	tasklet := migration.NewMigrationTasklet(p, config.NewConfig().Migration, migrations, nil, "sideways", nil)

	status, err := tasklet.Execute(context.Background(), model.NewJobExecution("migrate", nil).NewStepExecution("x"))
	assert.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
}

func TestMigrationTasklet_MissingDir(t *testing.T) {
	p := newSQLiteProvider(t)
	cfg := config.NewConfig().Migration
	cfg.Dir = filepath.Join(t.TempDir(), "nope")
	tasklet := migration.NewMigrationTasklet(p, cfg, nil, nil, "up", nil)

	_, err := tasklet.Execute(context.Background(), model.NewJobExecution("migrate", nil).NewStepExecution("x"))
	assert.Error(t, err)
}
