package metrics_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	infmetrics "github.com/tigerroll/dayche/pkg/batch/infrastructure/metrics"
)

func TestPrometheusRecorder_WriteTextfile(t *testing.T) {
	r := infmetrics.NewPrometheusRecorder(nil)
	ctx := context.Background()

	je := model.NewJobExecution("schema-apply", nil)
	je.MarkAsStarted()
	se := je.NewStepExecution("apply")
	se.MarkAsStarted()
	se.ReadCount = 4
	se.WriteCount = 3
	se.RollbackCount = 1
	se.MarkAsCompleted(model.ExitStatusFailed)
	je.MarkAsCompleted()

	r.RecordStepEnd(ctx, se)
	r.RecordJobEnd(ctx, je)
	r.RecordBatchExecution(ctx, "001_quotes.sql", "success")
	r.RecordBatchExecution(ctx, "001_quotes.sql", "failure")
	r.RecordScriptApply(ctx, "001_quotes.sql", "failure", 120*time.Millisecond)
	r.RecordAPIRequest(ctx, "historical-price-eod/full", "200", 30*time.Millisecond)
	r.RecordItemWrite(ctx, "ingest", 7)

	path := filepath.Join(t.TempDir(), "dayche.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.Contains(t, out, `dayche_schema_batch_executions_total{script="001_quotes.sql",status="failure"} 1`)
	assert.Contains(t, out, `dayche_step_read_total{job_name="schema-apply",step_name="apply"} 4`)
	assert.Contains(t, out, `dayche_item_write_total{step_name="ingest"} 7`)
	assert.Contains(t, out, `dayche_schema_apply_duration_seconds_count{outcome="failure",script="001_quotes.sql"} 1`)
	assert.Contains(t, out, "dayche_job_duration_seconds_bucket")
}

func TestOpenTelemetryTracer_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	tracer := infmetrics.NewOpenTelemetryTracer(tp, nil)
	je := model.NewJobExecution("fetch-eod", nil)
	se := je.NewStepExecution("ingest")

	ctx, endJob := tracer.StartJobSpan(context.Background(), je)
	stepCtx, endStep := tracer.StartStepSpan(ctx, se)
	applyCtx, endApply := tracer.StartSpan(stepCtx, "schema.apply", map[string]interface{}{"batches": 3, "stop_on_error": true})
	tracer.RecordEvent(applyCtx, "batch.failed", map[string]interface{}{"index": 1})
	tracer.RecordError(applyCtx, "schema", errors.New("syntax error"))
	endApply()
	endStep()
	endJob()

	spans := sr.Ended()
	require.Len(t, spans, 3)
	apply := spans[0]
	assert.Equal(t, "schema.apply", apply.Name())
	assert.Equal(t, codes.Error, apply.Status().Code)
	assert.Len(t, apply.Events(), 2, "one recorded event and one exception event")
	assert.Equal(t, "step ingest", spans[1].Name())
	assert.Equal(t, "job fetch-eod", spans[2].Name())
	assert.Equal(t, spans[2].SpanContext().TraceID(), apply.SpanContext().TraceID())
}
