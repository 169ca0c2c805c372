package sql

import (
	"time"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/support/util/serialization"
)

func fromDomainJobExecution(je *model.JobExecution) (*JobExecutionEntity, error) {
	params, err := serialization.MarshalParameters(je.Parameters)
	if err != nil {
		return nil, err
	}
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &JobExecutionEntity{
		ID:               je.ID,
		JobName:          je.JobName,
		Parameters:       params,
		Status:           string(je.Status),
		ExitStatus:       string(je.ExitStatus),
		StartTime:        je.StartTime.UTC(),
		EndTime:          utcPtr(je.EndTime),
		Failures:         failures,
		ExecutionContext: ec,
		LastUpdated:      time.Now().UTC(),
	}, nil
}

func toDomainJobExecution(e *JobExecutionEntity) (*model.JobExecution, error) {
	params, err := serialization.UnmarshalParameters(e.Parameters)
	if err != nil {
		return nil, err
	}
	failures, err := serialization.UnmarshalFailures(e.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext(e.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &model.JobExecution{
		ID:               e.ID,
		JobName:          e.JobName,
		Parameters:       params,
		Status:           model.JobStatus(e.Status),
		ExitStatus:       model.ExitStatus(e.ExitStatus),
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Failures:         failures,
		StepExecutions:   []*model.StepExecution{},
		ExecutionContext: ec,
	}, nil
}

func fromDomainStepExecution(se *model.StepExecution) (*StepExecutionEntity, error) {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &StepExecutionEntity{
		ID:               se.ID,
		JobExecutionID:   se.JobExecutionID,
		StepName:         se.StepName,
		Status:           string(se.Status),
		ExitStatus:       string(se.ExitStatus),
		StartTime:        se.StartTime.UTC(),
		EndTime:          utcPtr(se.EndTime),
		Failures:         failures,
		ReadCount:        se.ReadCount,
		WriteCount:       se.WriteCount,
		CommitCount:      se.CommitCount,
		RollbackCount:    se.RollbackCount,
		FilterCount:      se.FilterCount,
		ExecutionContext: ec,
		LastUpdated:      time.Now().UTC(),
	}, nil
}

func toDomainStepExecution(e *StepExecutionEntity) (*model.StepExecution, error) {
	failures, err := serialization.UnmarshalFailures(e.Failures)
	if err != nil {
		return nil, err
	}
	ec, err := serialization.UnmarshalExecutionContext(e.ExecutionContext)
	if err != nil {
		return nil, err
	}
	return &model.StepExecution{
		ID:               e.ID,
		StepName:         e.StepName,
		JobExecutionID:   e.JobExecutionID,
		StartTime:        e.StartTime,
		EndTime:          e.EndTime,
		Status:           model.JobStatus(e.Status),
		ExitStatus:       model.ExitStatus(e.ExitStatus),
		Failures:         failures,
		ReadCount:        e.ReadCount,
		WriteCount:       e.WriteCount,
		CommitCount:      e.CommitCount,
		RollbackCount:    e.RollbackCount,
		FilterCount:      e.FilterCount,
		ExecutionContext: ec,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
