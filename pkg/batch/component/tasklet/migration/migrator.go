// Package migration runs versioned golang-migrate migrations on a database.DBConnection.
package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/database/sqlserver"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// migratorImpl implements Migrator with golang-migrate.
type migratorImpl struct {
	dbConn database.DBConnection
	dbType string
	log    *logger.Logger
}

// NewMigrator creates a Migrator for dbConn.
func NewMigrator(dbConn database.DBConnection, log *logger.Logger) Migrator {
	if log == nil {
		log = logger.Discard()
	}
	return &migratorImpl{
		dbConn: dbConn,
		dbType: dbConn.Type(),
		log:    log,
	}
}

// NewMigratorProvider returns a MigratorProvider creating golang-migrate migrators.
func NewMigratorProvider(log *logger.Logger) MigratorProvider {
	return MigratorProviderFunc(func(dbConn database.DBConnection) Migrator {
		return NewMigrator(dbConn, log)
	})
}

// getDatabaseDriver wraps sqlDB in the golang-migrate driver of the connection type.
func (m *migratorImpl) getDatabaseDriver(sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch m.dbType {
	case "sqlserver":
		return sqlserver.WithInstance(sqlDB, &sqlserver.Config{MigrationsTable: tableName})
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite3.WithInstance(sqlDB, &sqlite3.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}

func (m *migratorImpl) getMigrateInstance(migrationFS fs.FS, path string, tableName string) (*migrate.Migrate, error) {
	if tableName == "" {
		tableName = DefaultMigrationsTable
	}
	sqlDB, err := m.dbConn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, err := m.getDatabaseDriver(sqlDB, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

func (m *migratorImpl) runMigration(ctx context.Context, migrationFS fs.FS, path string, command string, tableName string) error {
	m.log.Infof("Executing migration '%s' (Path: %s, Table: %s)", command, path, tableName)

	mInstance, err := m.getMigrateInstance(migrationFS, path, tableName)
	if err != nil {
		return err
	}
	defer m.closeInstance(mInstance)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			mInstance.GracefulStop <- true
		case <-stop:
		}
	}()

	var migrateErr error
	switch command {
	case "up":
		migrateErr = mInstance.Up()
	case "down":
		migrateErr = mInstance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if errors.Is(migrateErr, migrate.ErrNoChange) {
		m.log.Infof("Migration '%s': no change.", command)
		return nil
	}
	if migrateErr != nil {
		if version, dirty, verr := mInstance.Version(); verr == nil {
			m.log.Errorf("Migration failed at version %d (dirty=%t).", version, dirty)
		}
		return fmt.Errorf("migration failed for command '%s' (DB: %s, Path: %s): %w", command, m.dbType, path, migrateErr)
	}

	m.log.Infof("Migration '%s' completed successfully.", command)
	return nil
}

// closeInstance closes the migrate instance. The database drivers close the
// *sql.DB they were given, so the connection must be reopened afterwards.
func (m *migratorImpl) closeInstance(mInstance *migrate.Migrate) {
	srcErr, dbErr := mInstance.Close()
	if srcErr != nil {
		m.log.Warnf("Failed to close migration source: %v", srcErr)
	}
	if dbErr != nil {
		m.log.Debugf("Migration database driver closed with: %v", dbErr)
	}
}

func (m *migratorImpl) Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.runMigration(ctx, migrationFS, path, "up", tableName)
}

func (m *migratorImpl) Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error {
	return m.runMigration(ctx, migrationFS, path, "down", tableName)
}

func (m *migratorImpl) Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (uint, bool, error) {
	mInstance, err := m.getMigrateInstance(migrationFS, path, tableName)
	if err != nil {
		return 0, false, err
	}
	defer m.closeInstance(mInstance)

	version, dirty, err := mInstance.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
