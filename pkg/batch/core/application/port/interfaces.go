// Package port defines the interfaces between the job runner and the components it executes.
package port

import (
	"context"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
)

// Tasklet is a single unit of work executed as one step.
type Tasklet interface {
	// Execute runs the tasklet. Counters and failures are recorded on stepExecution.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
}

// TaskletFunc adapts a function to the Tasklet interface.
type TaskletFunc func(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)

// Execute calls f.
func (f TaskletFunc) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	return f(ctx, stepExecution)
}

// Step is a named Tasklet within a job.
type Step struct {
	Name    string
	Tasklet Tasklet
}

// JobRunner executes the steps of a job in order.
type JobRunner interface {
	Run(ctx context.Context, jobExecution *model.JobExecution, steps []Step) error
}

// ItemWriter writes a batch of items.
type ItemWriter[T any] interface {
	Open(ctx context.Context) error
	Write(ctx context.Context, items []T) error
	Close(ctx context.Context) error
}
