// Package inmemory provides an in-memory JobRepository for tests and runs without a metadata database.
package inmemory

import (
	"context"
	"sort"
	"sync"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/domain/repository"
)

// InMemoryJobRepository holds execution records in maps.
type InMemoryJobRepository struct {
	jobExecutions  map[string]*model.JobExecution
	stepExecutions map[string]*model.StepExecution
	mu             sync.RWMutex
}

// NewInMemoryJobRepository creates an empty InMemoryJobRepository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobExecutions:  make(map[string]*model.JobExecution),
		stepExecutions: make(map[string]*model.StepExecution),
	}
}

// SaveJobExecution stores a copy of jobExecution.
func (r *InMemoryJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *jobExecution
	clone.StepExecutions = nil
	r.jobExecutions[jobExecution.ID] = &clone
	return nil
}

// UpdateJobExecution is SaveJobExecution.
func (r *InMemoryJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	return r.SaveJobExecution(ctx, jobExecution)
}

// FindJobExecutionByID returns a copy of the stored execution with its steps attached.
func (r *InMemoryJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	je, ok := r.jobExecutions[id]
	if !ok {
		return nil, repository.ErrJobExecutionNotFound
	}
	clone := *je
	clone.StepExecutions = r.stepsOf(id)
	return &clone, nil
}

// FindRecentJobExecutions returns up to limit executions of jobName, newest first.
func (r *InMemoryJobRepository) FindRecentJobExecutions(ctx context.Context, jobName string, limit int) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.JobExecution
	for _, je := range r.jobExecutions {
		if je.JobName == jobName {
			clone := *je
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveStepExecution stores a copy of stepExecution.
func (r *InMemoryJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *stepExecution
	clone.JobExecution = nil
	r.stepExecutions[stepExecution.ID] = &clone
	return nil
}

// UpdateStepExecution is SaveStepExecution.
func (r *InMemoryJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	return r.SaveStepExecution(ctx, stepExecution)
}

// FindStepExecutionsByJobExecutionID returns the steps of a job execution ordered by start time.
func (r *InMemoryJobRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*model.StepExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stepsOf(jobExecutionID), nil
}

func (r *InMemoryJobRepository) stepsOf(jobExecutionID string) []*model.StepExecution {
	steps := make([]*model.StepExecution, 0)
	for _, se := range r.stepExecutions {
		if se.JobExecutionID == jobExecutionID {
			clone := *se
			steps = append(steps, &clone)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StartTime.Before(steps[j].StartTime) })
	return steps
}

// Close implements repository.JobRepository.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

var _ repository.JobRepository = (*InMemoryJobRepository)(nil)
