package sql

import (
	"time"
)

// JobExecutionEntity is the row of batch_job_execution.
type JobExecutionEntity struct {
	ID               string     `gorm:"column:id;primaryKey"`
	JobName          string     `gorm:"column:job_name"`
	Parameters       string     `gorm:"column:parameters"`
	Status           string     `gorm:"column:status"`
	ExitStatus       string     `gorm:"column:exit_status"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          *time.Time `gorm:"column:end_time"`
	Failures         string     `gorm:"column:failures"`
	ExecutionContext string     `gorm:"column:execution_context"`
	LastUpdated      time.Time  `gorm:"column:last_updated"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the row of batch_step_execution.
type StepExecutionEntity struct {
	ID               string     `gorm:"column:id;primaryKey"`
	JobExecutionID   string     `gorm:"column:job_execution_id"`
	StepName         string     `gorm:"column:step_name"`
	Status           string     `gorm:"column:status"`
	ExitStatus       string     `gorm:"column:exit_status"`
	StartTime        time.Time  `gorm:"column:start_time"`
	EndTime          *time.Time `gorm:"column:end_time"`
	Failures         string     `gorm:"column:failures"`
	ReadCount        int        `gorm:"column:read_count"`
	WriteCount       int        `gorm:"column:write_count"`
	CommitCount      int        `gorm:"column:commit_count"`
	RollbackCount    int        `gorm:"column:rollback_count"`
	FilterCount      int        `gorm:"column:filter_count"`
	ExecutionContext string     `gorm:"column:execution_context"`
	LastUpdated      time.Time  `gorm:"column:last_updated"`
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}

var (
	jobExecutionUpdateColumns = []string{
		"status", "exit_status", "end_time", "failures", "execution_context", "last_updated",
	}
	stepExecutionUpdateColumns = []string{
		"status", "exit_status", "end_time", "failures", "read_count", "write_count",
		"commit_count", "rollback_count", "filter_count", "execution_context", "last_updated",
	}
)
