package schema

import (
	"context"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	tx "github.com/tigerroll/dayche/pkg/batch/core/tx"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const module = "schema"

// Options controls how a script is applied.
type Options struct {
	// StopOnError stops at the first failing batch. When false every batch is attempted.
	StopOnError bool
	// Separator is the batch separator keyword.
	Separator string
	// CommitOnPartialFailure commits the work of the successful batches when
	// StopOnError is false and some batches failed.
	CommitOnPartialFailure bool
}

// DefaultOptions returns fail-fast options with the "GO" separator.
func DefaultOptions() Options {
	return Options{
		StopOnError: true,
		Separator:   DefaultSeparator,
	}
}

// Option configures an Applier.
type Option func(*Applier)

// WithStopOnError sets fail-fast (true) or continue (false) mode.
func WithStopOnError(stop bool) Option {
	return func(a *Applier) { a.opts.StopOnError = stop }
}

// WithSeparator sets the batch separator keyword. An empty keyword keeps the default.
func WithSeparator(keyword string) Option {
	return func(a *Applier) {
		if keyword != "" {
			a.opts.Separator = keyword
		}
	}
}

// WithCommitOnPartialFailure commits successful batches in continue mode even when others failed.
func WithCommitOnPartialFailure(commit bool) Option {
	return func(a *Applier) { a.opts.CommitOnPartialFailure = commit }
}

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option {
	return func(a *Applier) {
		a.opts = opts
		if a.opts.Separator == "" {
			a.opts.Separator = DefaultSeparator
		}
	}
}

// WithMetricRecorder records batch executions and script outcomes on recorder.
func WithMetricRecorder(recorder metrics.MetricRecorder) Option {
	return func(a *Applier) {
		if recorder != nil {
			a.recorder = recorder
		}
	}
}

// WithTracer traces each Apply call with tracer.
func WithTracer(tracer metrics.Tracer) Option {
	return func(a *Applier) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithScriptName names the script in logs and metrics.
func WithScriptName(name string) Option {
	return func(a *Applier) { a.name = name }
}

// Outcome summarises one Apply call.
type Outcome struct {
	// Batches is the number of batches in the plan.
	Batches int
	// Executions is the number of batch executions attempted, repeats included.
	Executions int
	// Succeeded is the number of batches whose every repetition succeeded.
	Succeeded int
	Failures  []BatchFailure
	// Committed reports that an explicit commit was issued and succeeded.
	Committed bool
	// RolledBack reports that a rollback was issued.
	RolledBack bool
	Duration   time.Duration
}

// Applier executes scripts batch by batch on a session.
// An Applier is not safe for concurrent use since its session is not.
type Applier struct {
	session  tx.Session
	log      *logger.Logger
	opts     Options
	sep      *Separator
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	name     string
}

// NewApplier creates an Applier on session. A nil log discards output.
// The session is checked on every Apply, so a nil session is accepted here.
func NewApplier(session tx.Session, log *logger.Logger, opts ...Option) (*Applier, error) {
	if log == nil {
		log = logger.Discard()
	}
	a := &Applier{
		session:  session,
		log:      log,
		opts:     DefaultOptions(),
		recorder: metrics.NewNoOpMetricRecorder(),
		tracer:   metrics.NewNoOpTracer(),
		name:     "script",
	}
	for _, opt := range opts {
		opt(a)
	}
	sep, err := NewSeparator(a.opts.Separator)
	if err != nil {
		return nil, err
	}
	a.sep = sep
	return a, nil
}

// Options returns the effective options.
func (a *Applier) Options() Options {
	return a.opts
}

// Plan splits script with the configured separator without executing it.
func (a *Applier) Plan(script string) Plan {
	return Split(script, a.sep)
}

// ApplyFile loads the script at path in the given encoding and applies it.
func (a *Applier) ApplyFile(ctx context.Context, path, encoding string) (Outcome, error) {
	script, err := LoadScript(path, encoding)
	if err != nil {
		return Outcome{}, err
	}
	if a.name == "script" {
		a.name = filepath.Base(path)
	}
	return a.Apply(ctx, script)
}

// Apply splits script and executes its batches in order.
//
// In fail-fast mode the first failure rolls back a non-autocommit session and
// returns a *BatchExecutionError. In continue mode every batch is attempted and
// failures are returned as an *AggregateExecutionError; the session is rolled
// back unless CommitOnPartialFailure is set. When that partial commit fails, the
// returned error holds both the *AggregateExecutionError and the TransactionError.
// A failed commit is never followed by a rollback. An empty plan executes nothing.
func (a *Applier) Apply(ctx context.Context, script string) (Outcome, error) {
	start := time.Now()
	var outcome Outcome

	if err := a.checkConnected(); err != nil {
		return outcome, err
	}

	plan := Split(script, a.sep)
	outcome.Batches = len(plan)
	if len(plan) == 0 {
		a.log.Infof("Script '%s' contains no batches. Nothing to apply.", a.name)
		return outcome, nil
	}

	ctx, endSpan := a.tracer.StartSpan(ctx, "schema.apply", map[string]interface{}{
		"script":        a.name,
		"batches":       len(plan),
		"stop_on_error": a.opts.StopOnError,
	})
	defer endSpan()

	autoCommit := a.session.AutoCommit()
	a.log.Infof("Applying script '%s': %d batch(es), %d execution(s), stop_on_error=%t, autocommit=%t",
		a.name, len(plan), plan.Executions(), a.opts.StopOnError, autoCommit)

	err := a.run(ctx, plan, autoCommit, &outcome)
	outcome.Duration = time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
		a.tracer.RecordError(ctx, module, err)
	}
	a.recorder.RecordScriptApply(ctx, a.name, status, outcome.Duration)
	return outcome, err
}

func (a *Applier) checkConnected() error {
	if a.session == nil {
		return &NotConnectedError{Reason: "no session"}
	}
	if cc, ok := a.session.(tx.ConnectionChecker); ok && !cc.IsConnected() {
		return &NotConnectedError{}
	}
	return nil
}

func (a *Applier) run(ctx context.Context, plan Plan, autoCommit bool, outcome *Outcome) error {
	for _, b := range plan {
		failure, ok := a.runBatch(ctx, b, len(plan), outcome)
		if ok {
			outcome.Succeeded++
			continue
		}

		outcome.Failures = append(outcome.Failures, failure)
		if a.opts.StopOnError || ctx.Err() != nil {
			bErr := &BatchExecutionError{
				Index:     failure.Index,
				Attempt:   failure.Attempt,
				Snippet:   failure.Snippet,
				Hash:      failure.Hash,
				Succeeded: outcome.Succeeded,
				Err:       failure.Err,
			}
			if !autoCommit {
				bErr.RollbackErr = a.rollback(ctx, outcome)
			}
			a.log.Errorf("Script '%s' stopped at batch %d: %v", a.name, b.Index, failure.Err)
			return bErr
		}
		a.log.Warnf("Continuing after failed batch %d of script '%s'.", b.Index, a.name)
	}

	if len(outcome.Failures) == 0 {
		if !autoCommit {
			if err := a.commit(ctx, outcome); err != nil {
				return err
			}
		}
		a.log.Infof("Script '%s' applied: %d batch(es) succeeded.", a.name, outcome.Succeeded)
		return nil
	}

	aggErr := newAggregateExecutionError(outcome.Failures, len(plan))
	if !autoCommit {
		if a.opts.CommitOnPartialFailure {
			if err := a.commit(ctx, outcome); err != nil {
				return multierror.Append(aggErr, err)
			}
		} else {
			aggErr.RollbackErr = a.rollback(ctx, outcome)
		}
	}
	a.log.Errorf("Script '%s' finished with %d failed batch(es) of %d.", a.name, len(outcome.Failures), len(plan))
	return aggErr
}

// runBatch executes b Repeat times. It stops at the first failing repetition.
func (a *Applier) runBatch(ctx context.Context, b Batch, total int, outcome *Outcome) (BatchFailure, bool) {
	for attempt := 1; attempt <= b.Repeat; attempt++ {
		if err := ctx.Err(); err != nil {
			return newBatchFailure(b, attempt, err), false
		}

		a.log.Debugf("Executing batch %d/%d (line %d, repetition %d/%d): %s",
			b.Index+1, total, b.Line, attempt, b.Repeat, Snippet(b.Text))
		outcome.Executions++

		if err := a.session.Execute(ctx, b.Text); err != nil {
			a.recorder.RecordBatchExecution(ctx, a.name, "failure")
			a.log.Errorf("Batch %d (line %d) failed: %v", b.Index, b.Line, err)
			return newBatchFailure(b, attempt, err), false
		}
		a.recorder.RecordBatchExecution(ctx, a.name, "success")
	}
	return BatchFailure{}, true
}

func (a *Applier) commit(ctx context.Context, outcome *Outcome) error {
	// A failed commit ends the transaction, so there is nothing left to roll back.
	if err := a.session.Commit(ctx); err != nil {
		a.log.Errorf("Commit of script '%s' failed: %v", a.name, err)
		return exception.NewTransactionError(module, "commit failed", err)
	}
	outcome.Committed = true
	a.log.Debugf("Script '%s' committed.", a.name)
	return nil
}

func (a *Applier) rollback(ctx context.Context, outcome *Outcome) error {
	outcome.RolledBack = true
	if err := a.session.Rollback(context.WithoutCancel(ctx)); err != nil {
		a.log.Errorf("Rollback of script '%s' failed: %v", a.name, err)
		return err
	}
	a.log.Infof("Script '%s' rolled back.", a.name)
	return nil
}
