package sql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dayche/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/dayche/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

func newRepo(t *testing.T) (*sqlrepo.SQLJobRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:                 gormadapter.NewGormLogger(logger.Discard(), "SILENT"),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	conn, err := gormadapter.NewGormDBAdapter(gdb, dbconfig.DatabaseConfig{Type: "mysql"}, "metadata", logger.Discard())
	require.NoError(t, err)
	return sqlrepo.NewSQLJobRepository(conn, logger.Discard()), mock
}

func TestSaveJobExecution_Upserts(t *testing.T) {
	repo, mock := newRepo(t)
	je := model.NewJobExecution("schema_apply", map[string]string{"apikey": "secret"})
	je.MarkAsStarted()

	mock.ExpectExec("INSERT INTO `batch_job_execution` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveJobExecution(context.Background(), je))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStepExecution_MissingTableIsIgnored(t *testing.T) {
	repo, mock := newRepo(t)
	se := model.NewJobExecution("schema_apply", nil).NewStepExecution("apply")

	mock.ExpectExec("INSERT INTO `batch_step_execution`").
		WillReturnError(errors.New("Error 1146: Table 'market.batch_step_execution' doesn't exist"))

	assert.NoError(t, repo.SaveStepExecution(context.Background(), se))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStepExecution_OtherErrorsAreReturned(t *testing.T) {
	repo, mock := newRepo(t)
	se := model.NewJobExecution("schema_apply", nil).NewStepExecution("apply")

	mock.ExpectExec("INSERT INTO `batch_step_execution`").WillReturnError(errors.New("deadlock"))

	assert.Error(t, repo.SaveStepExecution(context.Background(), se))
}

func TestFindJobExecutionByID(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `batch_job_execution` WHERE `batch_job_execution`\\.`id` = \\?.* LIMIT \\?").
		WithArgs("je-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_name", "parameters", "status", "exit_status", "failures", "execution_context"}).
			AddRow("je-1", "eod_ingest", `{"symbol":"BTCUSD"}`, "COMPLETED", "COMPLETED", "[]", "{}"))
	mock.ExpectQuery("SELECT \\* FROM `batch_step_execution` WHERE `batch_step_execution`\\.`job_execution_id` = \\? ORDER BY start_time").
		WithArgs("je-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "job_execution_id", "step_name", "status", "write_count", "failures", "execution_context"}).
			AddRow("se-1", "je-1", "write", "COMPLETED", 12, "[]", "{}"))

	je, err := repo.FindJobExecutionByID(context.Background(), "je-1")
	require.NoError(t, err)
	assert.Equal(t, "eod_ingest", je.JobName)
	assert.Equal(t, "BTCUSD", je.Parameters["symbol"])
	require.Len(t, je.StepExecutions, 1)
	assert.Equal(t, 12, je.StepExecutions[0].WriteCount)
	assert.Same(t, je, je.StepExecutions[0].JobExecution)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindJobExecutionByID_NotFound(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT \\* FROM `batch_job_execution`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindJobExecutionByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
}

func TestIsTableNotExistError(t *testing.T) {
	assert.True(t, sqlrepo.IsTableNotExistError(errors.New("no such table: batch_job_execution")))
	assert.True(t, sqlrepo.IsTableNotExistError(errors.New("mssql: Invalid object name 'batch_job_execution'.")))
	assert.True(t, sqlrepo.IsTableNotExistError(errors.New(`ERROR: relation "batch_job_execution" does not exist`)))
	assert.False(t, sqlrepo.IsTableNotExistError(errors.New("deadlock")))
	assert.False(t, sqlrepo.IsTableNotExistError(nil))
}
