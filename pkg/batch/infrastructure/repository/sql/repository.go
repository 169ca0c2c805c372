// Package sql persists job and step executions in the batch_* tables created by the
// embedded migrations.
package sql

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/domain/repository"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const module = "SQLJobRepository"

// SQLJobRepository implements repository.JobRepository on a database.DBConnection.
// When the batch tables are missing, writes are skipped with a single warning so
// that jobs still run against a database that has not been migrated.
type SQLJobRepository struct {
	conn          database.DBConnection
	log           *logger.Logger
	tablesMissing atomic.Bool
}

// NewSQLJobRepository creates a SQLJobRepository.
func NewSQLJobRepository(conn database.DBConnection, log *logger.Logger) *SQLJobRepository {
	if log == nil {
		log = logger.Discard()
	}
	return &SQLJobRepository{conn: conn, log: log}
}

// SaveJobExecution upserts jobExecution.
func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	entity, err := fromDomainJobExecution(jobExecution)
	if err != nil {
		return err
	}
	_, err = r.conn.ExecuteUpsert(ctx, entity, entity.TableName(), []string{"id"}, jobExecutionUpdateColumns)
	return r.writeError(err, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID))
}

// UpdateJobExecution is SaveJobExecution.
func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	return r.SaveJobExecution(ctx, jobExecution)
}

// FindJobExecutionByID loads a job execution and its steps.
func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	var entities []JobExecutionEntity
	if err := r.conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"id": id}, "", 1); err != nil {
		return nil, exception.NewQueryExecutionError(module, fmt.Sprintf("failed to find JobExecution (ID: %s)", id), err)
	}
	if len(entities) == 0 {
		return nil, repository.ErrJobExecutionNotFound
	}
	je, err := toDomainJobExecution(&entities[0])
	if err != nil {
		return nil, err
	}
	steps, err := r.FindStepExecutionsByJobExecutionID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, se := range steps {
		se.JobExecution = je
	}
	je.StepExecutions = steps
	return je, nil
}

// FindRecentJobExecutions returns up to limit executions of jobName, newest first.
func (r *SQLJobRepository) FindRecentJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	var entities []JobExecutionEntity
	if err := r.conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"job_name": jobName}, "start_time DESC", limit); err != nil {
		return nil, exception.NewQueryExecutionError(module, fmt.Sprintf("failed to list executions of job '%s'", jobName), err)
	}
	out := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		je, err := toDomainJobExecution(&entities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, je)
	}
	return out, nil
}

// SaveStepExecution upserts stepExecution.
func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	entity, err := fromDomainStepExecution(stepExecution)
	if err != nil {
		return err
	}
	_, err = r.conn.ExecuteUpsert(ctx, entity, entity.TableName(), []string{"id"}, stepExecutionUpdateColumns)
	return r.writeError(err, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID))
}

// UpdateStepExecution is SaveStepExecution.
func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.SaveStepExecution(ctx, stepExecution)
}

// FindStepExecutionsByJobExecutionID returns the steps of a job execution ordered by start time.
func (r *SQLJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	var entities []StepExecutionEntity
	if err := r.conn.ExecuteQueryAdvanced(ctx, &entities, map[string]interface{}{"job_execution_id": jobExecutionID}, "start_time", 0); err != nil {
		return nil, exception.NewQueryExecutionError(module, fmt.Sprintf("failed to find steps of JobExecution (ID: %s)", jobExecutionID), err)
	}
	out := make([]*model.StepExecution, 0, len(entities))
	for i := range entities {
		se, err := toDomainStepExecution(&entities[i])
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	return out, nil
}

// Close does nothing; the connection belongs to its provider.
func (r *SQLJobRepository) Close() error {
	return nil
}

func (r *SQLJobRepository) writeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsTableNotExistError(err) {
		if !r.tablesMissing.Swap(true) {
			r.log.Warnf("Job tables are missing on '%s'; execution records are not persisted. Run 'migrate up' to create them.", r.conn.Name())
		}
		return nil
	}
	return exception.NewBatchError(module, msg, err, false, true)
}

// IsTableNotExistError reports whether err is a "table does not exist" error of a supported database.
func IsTableNotExistError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "invalid object name") ||
		strings.Contains(msg, "doesn't exist") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)
