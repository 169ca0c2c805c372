package migration

import (
	"context"
	"io/fs"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
)

// DefaultMigrationsTable is the table golang-migrate records the applied version in.
const DefaultMigrationsTable = "schema_migrations"

// Migrator applies versioned migrations to one connection.
// Every call closes the connection's *sql.DB when it finishes; callers reopen it
// with DBProvider.ForceReconnect.
type Migrator interface {
	// Up applies all pending migrations found under path in migrationFS.
	Up(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Down reverts all applied migrations.
	Down(ctx context.Context, migrationFS fs.FS, path string, tableName string) error
	// Version returns the current version and whether the database is dirty.
	// A database without any applied migration reports version 0.
	Version(ctx context.Context, migrationFS fs.FS, path string, tableName string) (version uint, dirty bool, err error)
}

// MigratorProvider creates a Migrator for a connection.
type MigratorProvider interface {
	NewMigrator(dbConn database.DBConnection) Migrator
}

// MigratorProviderFunc adapts a function to MigratorProvider.
type MigratorProviderFunc func(dbConn database.DBConnection) Migrator

// NewMigrator calls f.
func (f MigratorProviderFunc) NewMigrator(dbConn database.DBConnection) Migrator {
	return f(dbConn)
}
