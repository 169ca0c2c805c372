// Package metrics defines the metric and tracing abstractions used by dayche components.
// Implementations live in the infrastructure layer; the no-op versions here are
// used when metrics or tracing are disabled and in tests.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics about jobs, steps, script batches and API calls.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)

	// RecordBatchExecution records one execution of a script batch. status is "success" or "failure".
	RecordBatchExecution(ctx context.Context, script string, status string)
	// RecordScriptApply records the outcome and duration of a whole script application.
	RecordScriptApply(ctx context.Context, script string, outcome string, duration time.Duration)

	// RecordItemWrite records count items written by a step.
	RecordItemWrite(ctx context.Context, stepName string, count int)
	// RecordAPIRequest records one request to a remote API.
	RecordAPIRequest(ctx context.Context, endpoint string, status string, duration time.Duration)
}

// Tracer is an abstract interface for distributed tracing.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution. The returned function ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a span for a StepExecution. The returned function ends it.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// StartSpan starts a generic span. The returned function ends it.
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
