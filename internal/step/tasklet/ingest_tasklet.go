// Package tasklet holds the steps of the quote pipeline.
package tasklet

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/dayche/internal/domain/entity"
	"github.com/tigerroll/dayche/internal/step/processor"
	quotewriter "github.com/tigerroll/dayche/internal/step/writer"
	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	bulkwriter "github.com/tigerroll/dayche/pkg/batch/component/step/writer"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/core/tx"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const moduleIngest = "ingest_tasklet"

// QuoteFetcher loads raw quote rows. reader.QuoteAPIReader implements it.
type QuoteFetcher interface {
	FetchEOD(ctx context.Context, symbol string, from, to time.Time) ([]entity.EODRecord, error)
	FetchIntraday(ctx context.Context, symbol string, intervalSeconds int, from, to time.Time) ([]entity.IntradayRecord, error)
}

// IngestRequest selects what one ingest run loads.
type IngestRequest struct {
	Symbols []string
	From    time.Time
	To      time.Time
	// IntervalSeconds is used by intraday ingestion only.
	IntervalSeconds int
}

// Resolve fills an empty request from cfg: To defaults to now and From to LookbackDays before To.
// Symbols are upper-cased and deduplicated.
func (r IngestRequest) Resolve(cfg config.IngestConfig, now time.Time) IngestRequest {
	symbols := r.Symbols
	if len(symbols) == 0 {
		symbols = cfg.Symbols
	}
	r.Symbols = nil
	seen := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		r.Symbols = append(r.Symbols, s)
	}
	if r.To.IsZero() {
		r.To = now
	}
	if r.From.IsZero() {
		days := cfg.LookbackDays
		if days <= 0 {
			days = 1
		}
		r.From = r.To.AddDate(0, 0, -days)
	}
	if r.IntervalSeconds <= 0 {
		r.IntervalSeconds = cfg.IntervalSeconds
	}
	return r
}

// ingestDeps are shared by both ingest tasklets.
type ingestDeps struct {
	provider   database.DBProvider
	connection string
	fetcher    QuoteFetcher
	processor  *processor.QuoteProcessor
	request    IngestRequest
	recorder   metrics.MetricRecorder
	log        *logger.Logger
}

func newIngestDeps(
	provider database.DBProvider,
	cfg config.IngestConfig,
	fetcher QuoteFetcher,
	proc *processor.QuoteProcessor,
	req IngestRequest,
	recorder metrics.MetricRecorder,
	log *logger.Logger,
) ingestDeps {
	if log == nil {
		log = logger.Discard()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	connection := cfg.Connection
	if connection == "" {
		connection = config.DefaultConnection
	}
	return ingestDeps{
		provider:   provider,
		connection: connection,
		fetcher:    fetcher,
		processor:  proc,
		request:    req.Resolve(cfg, time.Now().UTC()),
		recorder:   recorder,
		log:        log,
	}
}

func (d ingestDeps) begin(se *model.StepExecution) (tx.TransactionManager, error) {
	if len(d.request.Symbols) == 0 {
		return nil, exception.NewBatchErrorf(moduleIngest, "no symbols to ingest")
	}
	conn, err := d.provider.GetConnection(d.connection)
	if err != nil {
		return nil, err
	}
	se.ExecutionContext["ingest.from"] = d.request.From.Format(time.DateOnly)
	se.ExecutionContext["ingest.to"] = d.request.To.Format(time.DateOnly)
	return conn.TransactionManager(), nil
}

// writeInTx writes items within one transaction and records the outcome on se.
func writeInTx[T any](ctx context.Context, tm tx.TransactionManager, w *bulkwriter.SqlBulkWriter[T], items []T, se *model.StepExecution) error {
	if len(items) == 0 {
		return nil
	}
	current, err := tm.Begin(ctx)
	if err != nil {
		return exception.NewTransactionError(moduleIngest, "begin failed", err)
	}

	txCtx := tx.WithTx(ctx, current)
	err = w.Open(txCtx)
	if err == nil {
		err = w.Write(txCtx, items)
	}
	if cerr := w.Close(txCtx); err == nil {
		err = cerr
	}
	if err != nil {
		se.RollbackCount++
		if rerr := tm.Rollback(current); rerr != nil {
			return exception.NewTransactionError(moduleIngest, "rollback failed after write error", multierror.Append(err, rerr))
		}
		return err
	}

	if err := tm.Commit(current); err != nil {
		se.RollbackCount++
		return exception.NewTransactionError(moduleIngest, "commit failed", err)
	}
	se.CommitCount++
	se.WriteCount += len(items)
	return nil
}

// EODIngestTasklet loads end-of-day bars for the requested symbols.
// Each symbol is written in its own transaction; the step stops at the first failing symbol.
type EODIngestTasklet struct {
	ingestDeps
	bulkSize int
}

// NewEODIngestTasklet creates an EODIngestTasklet.
func NewEODIngestTasklet(
	provider database.DBProvider,
	cfg config.IngestConfig,
	fetcher QuoteFetcher,
	proc *processor.QuoteProcessor,
	req IngestRequest,
	recorder metrics.MetricRecorder,
	log *logger.Logger,
) *EODIngestTasklet {
	return &EODIngestTasklet{
		ingestDeps: newIngestDeps(provider, cfg, fetcher, proc, req, recorder, log),
		bulkSize:   bulkwriter.DefaultBulkSize,
	}
}

// Execute implements port.Tasklet.
func (t *EODIngestTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	tm, err := t.begin(se)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	w := quotewriter.NewEODQuoteWriter(nil, t.bulkSize, t.recorder, t.log)

	for _, symbol := range t.request.Symbols {
		records, err := t.fetcher.FetchEOD(ctx, symbol, t.request.From, t.request.To)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		se.ReadCount += len(records)

		quotes, stats, err := t.processor.ProcessEOD(symbol, records)
		se.FilterCount += stats.Skipped + stats.Duplicates
		if err != nil {
			return model.ExitStatusFailed, err
		}
		if err := writeInTx(ctx, tm, w, quotes, se); err != nil {
			return model.ExitStatusFailed, err
		}
		t.log.Infof("Stored %d EOD bars for %s (%d fetched, %d skipped).", len(quotes), symbol, len(records), stats.Skipped)
	}

	if se.WriteCount == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

// IntradayIngestTasklet loads intraday bars of one interval for the requested symbols.
type IntradayIngestTasklet struct {
	ingestDeps
	bulkSize int
}

// NewIntradayIngestTasklet creates an IntradayIngestTasklet.
func NewIntradayIngestTasklet(
	provider database.DBProvider,
	cfg config.IngestConfig,
	fetcher QuoteFetcher,
	proc *processor.QuoteProcessor,
	req IngestRequest,
	recorder metrics.MetricRecorder,
	log *logger.Logger,
) *IntradayIngestTasklet {
	return &IntradayIngestTasklet{
		ingestDeps: newIngestDeps(provider, cfg, fetcher, proc, req, recorder, log),
		bulkSize:   bulkwriter.DefaultBulkSize,
	}
}

// Execute implements port.Tasklet.
func (t *IntradayIngestTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	tm, err := t.begin(se)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	interval := t.request.IntervalSeconds
	se.ExecutionContext["ingest.interval_seconds"] = interval
	w := quotewriter.NewIntradayQuoteWriter(nil, t.bulkSize, t.recorder, t.log)

	for _, symbol := range t.request.Symbols {
		records, err := t.fetcher.FetchIntraday(ctx, symbol, interval, t.request.From, t.request.To)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		se.ReadCount += len(records)

		quotes, stats, err := t.processor.ProcessIntraday(symbol, interval, records)
		se.FilterCount += stats.Skipped + stats.Duplicates
		if err != nil {
			return model.ExitStatusFailed, err
		}
		if err := writeInTx(ctx, tm, w, quotes, se); err != nil {
			return model.ExitStatusFailed, err
		}
		t.log.Infof("Stored %d intraday bars for %s (%d fetched, %d skipped).", len(quotes), symbol, len(records), stats.Skipped)
	}

	if se.WriteCount == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

var (
	_ port.Tasklet = (*EODIngestTasklet)(nil)
	_ port.Tasklet = (*IntradayIngestTasklet)(nil)
)
