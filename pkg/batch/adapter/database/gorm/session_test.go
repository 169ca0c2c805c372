package gorm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
)

func TestSQLSession_AutoCommit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE t (id INT)").WillReturnResult(sqlmock.NewResult(0, 0))

	s := gormadapter.NewSQLSession(db, true, nil)
	ctx := context.Background()

	assert.True(t, s.AutoCommit())
	require.NoError(t, s.Execute(ctx, "CREATE TABLE t (id INT)"))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSession_TransactionSpansStatements(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO t VALUES (2)").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	s := gormadapter.NewSQLSession(db, false, nil)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, "INSERT INTO t VALUES (1)"))
	require.NoError(t, s.Execute(ctx, "INSERT INTO t VALUES (2)"))
	require.NoError(t, s.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSession_FailedStatementRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE missing").WillReturnError(errors.New("table does not exist"))
	mock.ExpectRollback()

	s := gormadapter.NewSQLSession(db, false, nil)
	ctx := context.Background()

	err = s.Execute(ctx, "DROP TABLE missing")
	require.Error(t, err)
	assert.True(t, exception.IsQueryExecutionError(err))
	assert.Contains(t, err.Error(), "table does not exist")

	require.NoError(t, s.Rollback(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSession_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

	s := gormadapter.NewSQLSession(db, false, nil)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, "SELECT 1"))
	err = s.Commit(ctx)
	require.Error(t, err)
	assert.True(t, exception.IsTransactionError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSession_Close(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	s := gormadapter.NewSQLSession(db, false, nil)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, "SELECT 1"))
	assert.True(t, s.IsConnected())
	require.NoError(t, s.Close())
	assert.False(t, s.IsConnected())
	require.NoError(t, s.Close())

	err = s.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.True(t, exception.IsQueryExecutionError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
