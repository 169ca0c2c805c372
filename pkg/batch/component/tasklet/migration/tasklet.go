package migration

import (
	"context"
	"io/fs"
	"os"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const taskletName = "migration_tasklet"

// MigrationTasklet runs "up" or "down" migrations on the configured connection.
//
// Migrations come from MigrationConfig.Dir when set, otherwise from the
// "<dialect>/" directory of the embedded filesystem. After migrating, the
// connection is reopened since golang-migrate closes it.
type MigrationTasklet struct {
	provider         database.DBProvider
	cfg              config.MigrationConfig
	embedded         fs.FS
	migratorProvider MigratorProvider
	command          string
	log              *logger.Logger
}

// NewMigrationTasklet creates a MigrationTasklet. An empty command means "up".
func NewMigrationTasklet(
	provider database.DBProvider,
	cfg config.MigrationConfig,
	embedded fs.FS,
	migratorProvider MigratorProvider,
	command string,
	log *logger.Logger,
) *MigrationTasklet {
	if log == nil {
		log = logger.Discard()
	}
	if migratorProvider == nil {
		migratorProvider = NewMigratorProvider(log)
	}
	if command == "" {
		command = "up"
	}
	if cfg.Connection == "" {
		cfg.Connection = config.DefaultConnection
	}
	if cfg.Table == "" {
		cfg.Table = DefaultMigrationsTable
	}
	return &MigrationTasklet{
		provider:         provider,
		cfg:              cfg,
		embedded:         embedded,
		migratorProvider: migratorProvider,
		command:          command,
		log:              log,
	}
}

// Execute implements port.Tasklet.
func (t *MigrationTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	t.log.Infof("Starting database migration '%s' on connection '%s'.", t.command, t.cfg.Connection)

	dbConn, err := t.provider.ForceReconnect(t.cfg.Connection)
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf(taskletName, "Failed to connect '%s' before migration", t.cfg.Connection, err)
	}

	migrationFS, migrationDir, err := t.source(dbConn.Type())
	if err != nil {
		return model.ExitStatusFailed, err
	}

	migrator := t.migratorProvider.NewMigrator(dbConn)
	switch t.command {
	case "up":
		err = migrator.Up(ctx, migrationFS, migrationDir, t.cfg.Table)
	case "down":
		err = migrator.Down(ctx, migrationFS, migrationDir, t.cfg.Table)
	default:
		return model.ExitStatusFailed, exception.NewBatchErrorf(taskletName, "Unknown migration command: %s", t.command)
	}

	reconnected, rerr := t.provider.ForceReconnect(t.cfg.Connection)
	if rerr != nil {
		if err == nil {
			return model.ExitStatusFailed, exception.NewBatchError(taskletName, "Failed to reconnect after migration", rerr, false, false)
		}
		t.log.Errorf("Failed to reconnect after failed migration: %v", rerr)
	}
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError(taskletName, "Migration '"+t.command+"' failed", err, false, false)
	}

	// golang-migrate closed dbConn; the version is read through the reopened connection.
	version, dirty, verr := t.migratorProvider.NewMigrator(reconnected).Version(ctx, migrationFS, migrationDir, t.cfg.Table)
	if verr != nil {
		t.log.Warnf("Could not read migration version of '%s': %v", t.cfg.Connection, verr)
	} else {
		stepExecution.ExecutionContext["migration.version"] = version
		stepExecution.ExecutionContext["migration.dirty"] = dirty
		t.log.Infof("Database '%s' is at migration version %d.", t.cfg.Connection, version)
	}
	if _, rerr := t.provider.ForceReconnect(t.cfg.Connection); rerr != nil {
		return model.ExitStatusFailed, exception.NewBatchError(taskletName, "Failed to reconnect after migration", rerr, false, false)
	}
	return model.ExitStatusCompleted, nil
}

func (t *MigrationTasklet) source(dialect string) (fs.FS, string, error) {
	if t.cfg.Dir != "" {
		if _, err := os.Stat(t.cfg.Dir); err != nil {
			return nil, "", exception.NewBatchErrorf(taskletName, "Migration directory '%s' is not accessible", t.cfg.Dir, err)
		}
		return os.DirFS(t.cfg.Dir), ".", nil
	}
	if t.embedded == nil {
		return nil, "", exception.NewBatchErrorf(taskletName, "No migration directory configured")
	}
	return t.embedded, dialect, nil
}

var _ port.Tasklet = (*MigrationTasklet)(nil)
