// Package writer persists processed quotes.
package writer

import (
	"github.com/tigerroll/dayche/internal/domain/entity"
	"github.com/tigerroll/dayche/pkg/batch/component/step/writer"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/core/tx"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// NewEODQuoteWriter returns a writer upserting EOD bars on (symbol, trade_date).
// Re-ingesting a day overwrites its prices instead of adding a row.
func NewEODQuoteWriter(exec tx.TxExecutor, bulkSize int, recorder metrics.MetricRecorder, log *logger.Logger) *writer.SqlBulkWriter[entity.EODQuote] {
	return writer.NewSqlBulkWriter[entity.EODQuote](
		"eod_quote_writer",
		entity.EODQuote{}.TableName(),
		entity.EODConflictColumns,
		entity.EODUpdateColumns,
		writer.WithExecutor(exec),
		writer.WithBulkSize(bulkSize),
		writer.WithRecorder(recorder),
		writer.WithLogger(log),
	)
}

// NewIntradayQuoteWriter returns a writer upserting intraday bars on (symbol, interval_seconds, bucket_start).
func NewIntradayQuoteWriter(exec tx.TxExecutor, bulkSize int, recorder metrics.MetricRecorder, log *logger.Logger) *writer.SqlBulkWriter[entity.IntradayQuote] {
	return writer.NewSqlBulkWriter[entity.IntradayQuote](
		"intraday_quote_writer",
		entity.IntradayQuote{}.TableName(),
		entity.IntradayConflictColumns,
		entity.IntradayUpdateColumns,
		writer.WithExecutor(exec),
		writer.WithBulkSize(bulkSize),
		writer.WithRecorder(recorder),
		writer.WithLogger(log),
	)
}
