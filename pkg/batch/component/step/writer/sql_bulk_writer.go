package writer

import (
	"context"
	"fmt"

	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/core/tx"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// DefaultBulkSize is the chunk size used when none is configured.
const DefaultBulkSize = 500

// SqlBulkWriter is a port.ItemWriter that upserts items in chunks.
// It takes part in the transaction stored in the context with tx.WithTx and
// falls back to the executor given at construction when there is none.
type SqlBulkWriter[T any] struct {
	name            string
	bulkSize        int
	tableName       string
	conflictColumns []string
	updateColumns   []string
	fallback        tx.TxExecutor
	recorder        metrics.MetricRecorder
	log             *logger.Logger

	written int64
}

// SqlBulkWriterOption configures a SqlBulkWriter.
type SqlBulkWriterOption func(*sqlBulkWriterOptions)

type sqlBulkWriterOptions struct {
	bulkSize int
	fallback tx.TxExecutor
	recorder metrics.MetricRecorder
	log      *logger.Logger
}

// WithBulkSize sets the maximum number of rows per statement.
func WithBulkSize(n int) SqlBulkWriterOption {
	return func(o *sqlBulkWriterOptions) { o.bulkSize = n }
}

// WithExecutor sets the executor used when the context carries no transaction.
func WithExecutor(e tx.TxExecutor) SqlBulkWriterOption {
	return func(o *sqlBulkWriterOptions) { o.fallback = e }
}

// WithRecorder sets the recorder receiving item write counts.
func WithRecorder(r metrics.MetricRecorder) SqlBulkWriterOption {
	return func(o *sqlBulkWriterOptions) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) SqlBulkWriterOption {
	return func(o *sqlBulkWriterOptions) { o.log = l }
}

// NewSqlBulkWriter creates a SqlBulkWriter writing to tableName.
// Rows colliding on conflictColumns update updateColumns; an empty updateColumns keeps the existing row.
func NewSqlBulkWriter[T any](name, tableName string, conflictColumns, updateColumns []string, opts ...SqlBulkWriterOption) *SqlBulkWriter[T] {
	o := sqlBulkWriterOptions{bulkSize: DefaultBulkSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bulkSize <= 0 {
		o.bulkSize = DefaultBulkSize
	}
	if o.recorder == nil {
		o.recorder = metrics.NewNoOpMetricRecorder()
	}
	if o.log == nil {
		o.log = logger.Discard()
	}
	return &SqlBulkWriter[T]{
		name:            name,
		bulkSize:        o.bulkSize,
		tableName:       tableName,
		conflictColumns: conflictColumns,
		updateColumns:   updateColumns,
		fallback:        o.fallback,
		recorder:        o.recorder,
		log:             o.log,
	}
}

var _ port.ItemWriter[any] = (*SqlBulkWriter[any])(nil)

// Open resets the written counter.
func (w *SqlBulkWriter[T]) Open(ctx context.Context) error {
	w.written = 0
	w.log.Debugf("SqlBulkWriter '%s': Opened.", w.name)
	return nil
}

// Write upserts items in chunks of the configured bulk size.
func (w *SqlBulkWriter[T]) Write(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	var exec tx.TxExecutor
	if current, ok := tx.TxFromContext(ctx); ok {
		exec = current
	} else if w.fallback != nil {
		exec = w.fallback
	} else {
		return exception.NewBatchErrorf("writer", "SqlBulkWriter '%s': no transaction in context and no executor configured", w.name)
	}

	for i := 0; i < len(items); i += w.bulkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + w.bulkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[i:end]

		if _, err := exec.ExecuteUpsert(ctx, chunk, w.tableName, w.conflictColumns, w.updateColumns); err != nil {
			return exception.NewQueryExecutionError("writer",
				fmt.Sprintf("SqlBulkWriter '%s': upsert into %s failed (chunk start index %d)", w.name, w.tableName, i), err)
		}
		w.log.Debugf("SqlBulkWriter '%s': Wrote %d items in chunk (start index %d).", w.name, len(chunk), i)
	}

	w.written += int64(len(items))
	w.recorder.RecordItemWrite(ctx, w.name, len(items))
	return nil
}

// Close logs the number of rows written since Open.
func (w *SqlBulkWriter[T]) Close(ctx context.Context) error {
	w.log.Infof("SqlBulkWriter '%s': Wrote %d rows to %s.", w.name, w.written, w.tableName)
	return nil
}

// Written returns the number of items written since Open.
func (w *SqlBulkWriter[T]) Written() int64 {
	return w.written
}

// TableName returns the target table.
func (w *SqlBulkWriter[T]) TableName() string {
	return w.tableName
}
