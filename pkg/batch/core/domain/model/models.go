// Package model holds the execution records of jobs and steps.
package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a job or step execution.
type JobStatus string

const (
	BatchStatusStarting  JobStatus = "STARTING"
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
	BatchStatusAbandoned JobStatus = "ABANDONED"
	BatchStatusUnknown   JobStatus = "UNKNOWN"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished checks if the JobStatus represents a finished state.
func (s JobStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusAbandoned:
		return true
	default:
		return false
	}
}

// ExitStatus represents the detailed status upon job/step completion.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusNoOp      ExitStatus = "NO_OP"
)

// String returns the ExitStatus as a string.
func (s ExitStatus) String() string {
	return string(s)
}

// ExecutionContext is a key-value store for sharing state between steps of one job execution.
type ExecutionContext map[string]interface{}

// NewExecutionContext creates an empty ExecutionContext.
func NewExecutionContext() ExecutionContext {
	return make(ExecutionContext)
}

// GetString returns the string stored under key, or "" when absent or of another type.
func (ec ExecutionContext) GetString(key string) string {
	if s, ok := ec[key].(string); ok {
		return s
	}
	return ""
}

// FailureList holds a list of error messages.
type FailureList []string

// NewID generates a new execution ID.
func NewID() string {
	return uuid.New().String()
}

// JobExecution records one run of a job.
type JobExecution struct {
	ID               string
	JobName          string
	Parameters       map[string]string
	Status           JobStatus
	ExitStatus       ExitStatus
	StartTime        time.Time
	EndTime          *time.Time
	Failures         FailureList
	StepExecutions   []*StepExecution
	ExecutionContext ExecutionContext
}

// NewJobExecution creates a JobExecution in STARTING state.
func NewJobExecution(jobName string, params map[string]string) *JobExecution {
	if params == nil {
		params = map[string]string{}
	}
	return &JobExecution{
		ID:               NewID(),
		JobName:          jobName,
		Parameters:       params,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         FailureList{},
		StepExecutions:   []*StepExecution{},
		ExecutionContext: NewExecutionContext(),
	}
}

// NewStepExecution creates a StepExecution attached to je.
func (je *JobExecution) NewStepExecution(stepName string) *StepExecution {
	se := &StepExecution{
		ID:               NewID(),
		StepName:         stepName,
		JobExecution:     je,
		JobExecutionID:   je.ID,
		Status:           BatchStatusStarting,
		ExitStatus:       ExitStatusUnknown,
		Failures:         FailureList{},
		ExecutionContext: NewExecutionContext(),
	}
	je.StepExecutions = append(je.StepExecutions, se)
	return se
}

// MarkAsStarted sets the job to STARTED and records the start time.
func (je *JobExecution) MarkAsStarted() {
	je.Status = BatchStatusStarted
	je.StartTime = time.Now()
}

// MarkAsCompleted sets the job to COMPLETED.
func (je *JobExecution) MarkAsCompleted() {
	je.Status = BatchStatusCompleted
	je.ExitStatus = ExitStatusCompleted
	je.finish()
}

// MarkAsFailed sets the job to FAILED and records err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.Status = BatchStatusFailed
	je.ExitStatus = ExitStatusFailed
	if err != nil {
		je.Failures = append(je.Failures, err.Error())
	}
	je.finish()
}

func (je *JobExecution) finish() {
	now := time.Now()
	je.EndTime = &now
}

// Duration returns the elapsed time of a finished job, or the time since start otherwise.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime != nil {
		return je.EndTime.Sub(je.StartTime)
	}
	return time.Since(je.StartTime)
}

// StepExecution records one run of a step.
type StepExecution struct {
	ID               string
	StepName         string
	JobExecution     *JobExecution
	JobExecutionID   string
	StartTime        time.Time
	EndTime          *time.Time
	Status           JobStatus
	ExitStatus       ExitStatus
	Failures         FailureList
	ReadCount        int
	WriteCount       int
	CommitCount      int
	RollbackCount    int
	FilterCount      int
	ExecutionContext ExecutionContext
}

// MarkAsStarted sets the step to STARTED and records the start time.
func (se *StepExecution) MarkAsStarted() {
	se.Status = BatchStatusStarted
	se.StartTime = time.Now()
}

// MarkAsCompleted sets the step to COMPLETED with exitStatus.
func (se *StepExecution) MarkAsCompleted(exitStatus ExitStatus) {
	se.Status = BatchStatusCompleted
	se.ExitStatus = exitStatus
	se.finish()
}

// MarkAsFailed sets the step to FAILED and records err.
func (se *StepExecution) MarkAsFailed(err error) {
	se.Status = BatchStatusFailed
	se.ExitStatus = ExitStatusFailed
	if err != nil {
		se.Failures = append(se.Failures, err.Error())
	}
	se.finish()
}

// AddFailure records err without changing the step status.
func (se *StepExecution) AddFailure(err error) {
	if err != nil {
		se.Failures = append(se.Failures, err.Error())
	}
}

func (se *StepExecution) finish() {
	now := time.Now()
	se.EndTime = &now
}

// Duration returns the elapsed time of a finished step, or the time since start otherwise.
func (se *StepExecution) Duration() time.Duration {
	if se.EndTime != nil {
		return se.EndTime.Sub(se.StartTime)
	}
	return time.Since(se.StartTime)
}
