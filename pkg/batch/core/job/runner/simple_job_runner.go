package runner

import (
	"context"
	"fmt"

	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/dayche/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// SimpleJobRunner is an implementation of port.JobRunner that executes steps
// one after another and stops at the first failing step.
type SimpleJobRunner struct {
	log            *logger.Logger
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
	jobRepository  repository.JobRepository
}

// NewSimpleJobRunner creates an instance of SimpleJobRunner.
// Nil recorder or tracer fall back to the no-op implementations.
func NewSimpleJobRunner(log *logger.Logger, recorder metrics.MetricRecorder, tracer metrics.Tracer) *SimpleJobRunner {
	if log == nil {
		log = logger.Discard()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &SimpleJobRunner{
		log:            log,
		metricRecorder: recorder,
		tracer:         tracer,
	}
}

// WithJobRepository makes the runner persist job and step executions in repo.
// Persistence failures are logged and never fail the job.
func (r *SimpleJobRunner) WithJobRepository(repo repository.JobRepository) *SimpleJobRunner {
	r.jobRepository = repo
	return r
}

// Run executes steps in order. The returned error is the error of the failed step, if any.
func (r *SimpleJobRunner) Run(ctx context.Context, jobExecution *model.JobExecution, steps []port.Step) (err error) {
	jobExecution.MarkAsStarted()
	ctx, endSpan := r.tracer.StartJobSpan(ctx, jobExecution)
	defer endSpan()
	r.metricRecorder.RecordJobStart(ctx, jobExecution)
	r.log.Infof("JobRunner: Job '%s' (ID: %s) started with %d step(s).", jobExecution.JobName, jobExecution.ID, len(steps))
	r.persist(ctx, "job", jobExecution.ID, func(repo repository.JobRepository) error {
		return repo.SaveJobExecution(ctx, jobExecution)
	})

	defer func() {
		if err != nil {
			jobExecution.MarkAsFailed(err)
			r.tracer.RecordError(ctx, "runner", err)
			r.log.Errorf("JobRunner: Job '%s' (ID: %s) failed after %s: %v", jobExecution.JobName, jobExecution.ID, jobExecution.Duration(), err)
		} else {
			jobExecution.MarkAsCompleted()
			r.log.Infof("JobRunner: Job '%s' (ID: %s) completed in %s.", jobExecution.JobName, jobExecution.ID, jobExecution.Duration())
		}
		r.metricRecorder.RecordJobEnd(ctx, jobExecution)
		r.persist(ctx, "job", jobExecution.ID, func(repo repository.JobRepository) error {
			return repo.UpdateJobExecution(ctx, jobExecution)
		})
	}()

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, jobExecution, step); err != nil {
			return err
		}
	}
	return nil
}

func (r *SimpleJobRunner) runStep(ctx context.Context, jobExecution *model.JobExecution, step port.Step) (err error) {
	stepExecution := jobExecution.NewStepExecution(step.Name)
	stepExecution.MarkAsStarted()
	ctx, endSpan := r.tracer.StartStepSpan(ctx, stepExecution)
	defer endSpan()
	r.metricRecorder.RecordStepStart(ctx, stepExecution)
	r.log.Debugf("JobRunner: Step '%s' (ID: %s) started.", step.Name, stepExecution.ID)
	r.persist(ctx, "step", stepExecution.ID, func(repo repository.JobRepository) error {
		return repo.SaveStepExecution(ctx, stepExecution)
	})

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("step '%s' panicked: %v", step.Name, p)
		}
		if err != nil {
			stepExecution.MarkAsFailed(err)
			r.tracer.RecordError(ctx, step.Name, err)
		}
		r.metricRecorder.RecordStepEnd(ctx, stepExecution)
		r.persist(ctx, "step", stepExecution.ID, func(repo repository.JobRepository) error {
			return repo.UpdateStepExecution(ctx, stepExecution)
		})
		r.log.Infof("JobRunner: Step '%s' finished with status %s (read=%d, write=%d) in %s.",
			step.Name, stepExecution.ExitStatus, stepExecution.ReadCount, stepExecution.WriteCount, stepExecution.Duration())
	}()

	exitStatus, err := step.Tasklet.Execute(ctx, stepExecution)
	if err != nil {
		return err
	}
	if exitStatus == "" {
		exitStatus = model.ExitStatusCompleted
	}
	stepExecution.MarkAsCompleted(exitStatus)
	return nil
}

func (r *SimpleJobRunner) persist(ctx context.Context, kind, id string, fn func(repository.JobRepository) error) {
	if r.jobRepository == nil {
		return
	}
	if err := fn(r.jobRepository); err != nil {
		r.log.Warnf("JobRunner: Failed to persist %s execution %s: %v", kind, id, err)
	}
}

var _ port.JobRunner = (*SimpleJobRunner)(nil)
