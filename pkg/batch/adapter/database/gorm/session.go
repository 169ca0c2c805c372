package gorm

import (
	"context"
	"database/sql"
	"sync/atomic"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const sessionModule = "session"

// SQLSession implements database.Session on a *sql.DB.
//
// With autocommit each Execute runs directly on the pool. Without it the first
// Execute after a Commit or Rollback opens a transaction that holds every
// following statement until the next Commit or Rollback.
type SQLSession struct {
	db         *sql.DB
	autoCommit bool
	log        *logger.Logger

	tx     *sql.Tx
	closed atomic.Bool
}

// NewSQLSession creates a session on db.
func NewSQLSession(db *sql.DB, autoCommit bool, log *logger.Logger) *SQLSession {
	if log == nil {
		log = logger.Discard()
	}
	return &SQLSession{db: db, autoCommit: autoCommit, log: log}
}

// Execute runs statement.
func (s *SQLSession) Execute(ctx context.Context, statement string) error {
	if !s.IsConnected() {
		return exception.NewQueryExecutionError(sessionModule, "session is closed", nil)
	}
	if s.autoCommit {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return exception.NewQueryExecutionError(sessionModule, "statement failed", err)
		}
		return nil
	}

	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return exception.NewTransactionError(sessionModule, "failed to begin transaction", err)
		}
		s.tx = tx
		s.log.Debugf("Session transaction started.")
	}
	if _, err := s.tx.ExecContext(ctx, statement); err != nil {
		return exception.NewQueryExecutionError(sessionModule, "statement failed", err)
	}
	return nil
}

// Commit commits the open transaction, if any.
func (s *SQLSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return exception.NewTransactionError(sessionModule, "commit failed", err)
	}
	s.log.Debugf("Session transaction committed.")
	return nil
}

// Rollback rolls back the open transaction, if any.
func (s *SQLSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return exception.NewTransactionError(sessionModule, "rollback failed", err)
	}
	s.log.Debugf("Session transaction rolled back.")
	return nil
}

// AutoCommit reports the autocommit mode the session was opened with.
func (s *SQLSession) AutoCommit() bool {
	return s.autoCommit
}

// IsConnected reports whether the session is open and has a pool.
func (s *SQLSession) IsConnected() bool {
	return s.db != nil && !s.closed.Load()
}

// Close rolls back any open transaction and marks the session closed.
// The underlying pool is owned by the connection and stays open.
func (s *SQLSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.Rollback(context.Background())
}

var _ database.Session = (*SQLSession)(nil)
