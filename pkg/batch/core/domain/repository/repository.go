// Package repository defines the persistence of job and step executions.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
)

// ErrJobExecutionNotFound is returned when no job execution has the requested ID.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// JobRepository stores execution records.
// Save and Update are both idempotent: saving an existing record overwrites it.
type JobRepository interface {
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID returns the execution with its step executions attached.
	FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error)
	// FindRecentJobExecutions returns up to limit executions of jobName, newest first.
	FindRecentJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error)

	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	// FindStepExecutionsByJobExecutionID returns the steps of a job execution ordered by start time.
	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error)

	Close() error
}
