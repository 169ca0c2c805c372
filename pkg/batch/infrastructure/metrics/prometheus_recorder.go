package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// A CLI run is short lived, so the registry is dumped with WriteTextfile instead of being scraped.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	log      *logger.Logger

	// Job Metrics
	jobDurationSeconds *prometheus.HistogramVec
	jobStatusCounter   *prometheus.CounterVec

	// Step Metrics
	stepDurationSeconds *prometheus.HistogramVec
	stepStatusCounter   *prometheus.CounterVec
	stepReadCount       *prometheus.CounterVec
	stepWriteCount      *prometheus.CounterVec
	stepCommitCount     *prometheus.CounterVec
	stepRollbackCount   *prometheus.CounterVec

	// Script Metrics
	batchExecutions    *prometheus.CounterVec
	scriptApplySeconds *prometheus.HistogramVec

	// Item and API Metrics
	itemWriteCount    *prometheus.CounterVec
	apiRequestSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder with its own registry.
func NewPrometheusRecorder(log *logger.Logger) *PrometheusRecorder {
	if log == nil {
		log = logger.Discard()
	}
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		log:      log,
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayche_job_duration_seconds",
			Help:    "Duration of job executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status", "exit_status"}),
		jobStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_job_status_total",
			Help: "Total number of job executions by final status.",
		}, []string{"job_name", "status"}),
		stepDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayche_step_duration_seconds",
			Help:    "Duration of step executions.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "step_name", "status", "exit_status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_step_status_total",
			Help: "Total number of step executions by final status.",
		}, []string{"job_name", "step_name", "status"}),
		stepReadCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_step_read_total",
			Help: "Total items read by step.",
		}, []string{"job_name", "step_name"}),
		stepWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_step_write_total",
			Help: "Total items written by step.",
		}, []string{"job_name", "step_name"}),
		stepCommitCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_step_commit_total",
			Help: "Total commits by step.",
		}, []string{"job_name", "step_name"}),
		stepRollbackCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_step_rollback_total",
			Help: "Total rollbacks by step.",
		}, []string{"job_name", "step_name"}),
		batchExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_schema_batch_executions_total",
			Help: "Script batch executions by script and status.",
		}, []string{"script", "status"}),
		scriptApplySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayche_schema_apply_duration_seconds",
			Help:    "Duration of whole script applications.",
			Buckets: prometheus.DefBuckets,
		}, []string{"script", "outcome"}),
		itemWriteCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dayche_item_write_total",
			Help: "Items written by step.",
		}, []string{"step_name"}),
		apiRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dayche_api_request_duration_seconds",
			Help:    "Duration of quote API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}

	registry.MustRegister(
		r.jobDurationSeconds,
		r.jobStatusCounter,
		r.stepDurationSeconds,
		r.stepStatusCounter,
		r.stepReadCount,
		r.stepWriteCount,
		r.stepCommitCount,
		r.stepRollbackCount,
		r.batchExecutions,
		r.scriptApplySeconds,
		r.itemWriteCount,
		r.apiRequestSeconds,
	)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the registry to path in the node_exporter textfile collector format.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return err
	}
	r.log.Debugf("Metrics: written to %s.", path)
	return nil
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	r.log.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	r.jobStatusCounter.WithLabelValues(execution.JobName, execution.Status.String()).Inc()
	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.jobDurationSeconds.WithLabelValues(
		execution.JobName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	r.log.Debugf("Metrics: Job '%s' ended. Duration: %.3fs", execution.JobName, duration)
}

// RecordStepStart records the start of a StepExecution.
func (r *PrometheusRecorder) RecordStepStart(ctx context.Context, execution *model.StepExecution) {
	r.log.Debugf("Metrics: Step '%s' started.", execution.StepName)
}

// RecordStepEnd records the status, duration and final counters of a StepExecution.
func (r *PrometheusRecorder) RecordStepEnd(ctx context.Context, execution *model.StepExecution) {
	jobName := ""
	if execution.JobExecution != nil {
		jobName = execution.JobExecution.JobName
	}
	stepName := execution.StepName

	r.stepStatusCounter.WithLabelValues(jobName, stepName, execution.Status.String()).Inc()
	r.stepReadCount.WithLabelValues(jobName, stepName).Add(float64(execution.ReadCount))
	r.stepWriteCount.WithLabelValues(jobName, stepName).Add(float64(execution.WriteCount))
	r.stepCommitCount.WithLabelValues(jobName, stepName).Add(float64(execution.CommitCount))
	r.stepRollbackCount.WithLabelValues(jobName, stepName).Add(float64(execution.RollbackCount))

	if execution.EndTime == nil {
		return
	}
	duration := execution.EndTime.Sub(execution.StartTime).Seconds()
	r.stepDurationSeconds.WithLabelValues(
		jobName,
		stepName,
		execution.Status.String(),
		execution.ExitStatus.String(),
	).Observe(duration)

	r.log.Debugf("Metrics: Step '%s' ended. Duration: %.3fs", stepName, duration)
}

// RecordBatchExecution counts one execution of a script batch.
func (r *PrometheusRecorder) RecordBatchExecution(ctx context.Context, script string, status string) {
	r.batchExecutions.WithLabelValues(script, status).Inc()
}

// RecordScriptApply observes the duration of one script application.
func (r *PrometheusRecorder) RecordScriptApply(ctx context.Context, script string, outcome string, duration time.Duration) {
	r.scriptApplySeconds.WithLabelValues(script, outcome).Observe(duration.Seconds())
}

// RecordItemWrite records successful item writes.
func (r *PrometheusRecorder) RecordItemWrite(ctx context.Context, stepName string, count int) {
	r.itemWriteCount.WithLabelValues(stepName).Add(float64(count))
}

// RecordAPIRequest observes one quote API request.
func (r *PrometheusRecorder) RecordAPIRequest(ctx context.Context, endpoint string, status string, duration time.Duration) {
	r.apiRequestSeconds.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
