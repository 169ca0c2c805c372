// Package tx provides the transaction and session abstractions used by dayche components.
// Writers use TxExecutor inside a Tx obtained from a TransactionManager; script
// execution uses a Session, which exposes plain statement execution plus commit
// and rollback.
package tx

import (
	"context"
	"database/sql"
)

// TxExecutor defines write operations executable within a transaction.
// It is implemented by both DBConnection and Tx so that data operations
// look the same with or without an explicit transaction.
type TxExecutor interface {
	// ExecuteUpdate performs a CREATE, UPDATE or DELETE on model.
	// query holds column/value conditions combined with AND (UPDATE and DELETE only).
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model, updating updateColumns when a row with the same
	// conflictColumns already exists. An empty updateColumns means DO NOTHING.
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// Tx represents an ongoing database transaction.
type Tx interface {
	TxExecutor

	// Savepoint creates a new savepoint within the current transaction.
	Savepoint(name string) error
	// RollbackToSavepoint rolls back the transaction to the named savepoint.
	RollbackToSavepoint(name string) error
}

// TransactionManager manages the lifecycle of database transactions.
type TransactionManager interface {
	// Begin starts a new database transaction.
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	// Commit commits the specified transaction.
	Commit(tx Tx) error
	// Rollback rolls back the specified transaction.
	Rollback(tx Tx) error
}

// Session is a statement-level connection to a relational backend.
//
// When AutoCommit reports false, every Execute runs inside one implicit
// transaction that lasts until Commit or Rollback. When it reports true each
// statement is committed on its own and Commit/Rollback are no-ops.
// A Session is not safe for concurrent use.
type Session interface {
	// Execute runs statement text, which may contain several statements.
	Execute(ctx context.Context, statement string) error
	// Commit commits the work executed since the last Commit or Rollback.
	Commit(ctx context.Context) error
	// Rollback discards the work executed since the last Commit or Rollback.
	Rollback(ctx context.Context) error
	// AutoCommit reports whether the session commits every statement by itself.
	AutoCommit() bool
}

// ConnectionChecker is implemented by sessions that can report whether they are still usable.
type ConnectionChecker interface {
	IsConnected() bool
}

type txContextKey struct{}

// WithTx returns a copy of ctx carrying t. Writers that take part in an
// enclosing transaction find it with TxFromContext.
func WithTx(ctx context.Context, t Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, t)
}

// TxFromContext returns the transaction stored in ctx by WithTx.
func TxFromContext(ctx context.Context) (Tx, bool) {
	t, ok := ctx.Value(txContextKey{}).(Tx)
	return t, ok && t != nil
}
