// Package database defines the abstractions of database connections used by dayche components.
package database

import (
	"context"
	"database/sql"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/dayche/pkg/batch/core/adapter"
	tx "github.com/tigerroll/dayche/pkg/batch/core/tx"
)

// DBExecutor defines data operations on a connection.
type DBExecutor interface {
	tx.TxExecutor

	// ExecuteQuery loads rows matching query (column/value pairs combined with AND) into target.
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error
	// ExecuteQueryAdvanced is ExecuteQuery with ordering and a row limit (0 means no limit).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error
	// Count returns the number of rows of model's table matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a named connection to a relational database.
type DBConnection interface {
	coreAdapter.ResourceConnection
	DBExecutor

	// RefreshConnection verifies the connection is alive.
	RefreshConnection(ctx context.Context) error
	// Config returns the configuration the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB.
	GetSQLDB() (*sql.DB, error)
	// OpenSession opens a statement-level session honouring the configured autocommit mode.
	OpenSession(ctx context.Context) (Session, error)
	// TransactionManager returns a transaction manager bound to this connection.
	TransactionManager() tx.TransactionManager
}

// Session is a tx.Session that must be closed after use.
type Session interface {
	tx.Session
	tx.ConnectionChecker
	Close() error
}

// DBProvider manages the acquisition and lifecycle of named database connections.
type DBProvider interface {
	// GetConnection returns the connection with the given name, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and reopens the named connection.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
	// Type returns the type of resource handled by this provider.
	Type() string
}
