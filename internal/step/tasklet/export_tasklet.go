package tasklet

import (
	"context"
	"strings"

	"github.com/tigerroll/dayche/internal/domain/entity"
	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	"github.com/tigerroll/dayche/pkg/batch/adapter/storage"
	"github.com/tigerroll/dayche/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/dayche/pkg/batch/component/step/writer"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

const moduleExport = "export_tasklet"

// QuoteExportTasklet writes the stored EOD bars of some symbols to Parquet,
// one "symbol=<SYMBOL>" partition per symbol under "eod_quotes/".
type QuoteExportTasklet struct {
	db      database.DBProvider
	storage storage.StorageProvider
	cfg     config.ExportConfig
	symbols []string
	log     *logger.Logger
}

// NewQuoteExportTasklet creates a QuoteExportTasklet.
func NewQuoteExportTasklet(db database.DBProvider, store storage.StorageProvider, cfg config.ExportConfig, symbols []string, log *logger.Logger) *QuoteExportTasklet {
	if log == nil {
		log = logger.Discard()
	}
	if cfg.Connection == "" {
		cfg.Connection = config.DefaultConnection
	}
	return &QuoteExportTasklet{
		db:      db,
		storage: store,
		cfg:     cfg,
		symbols: symbols,
		log:     log,
	}
}

// Execute implements port.Tasklet. The written object names are stored under "export.files".
func (t *QuoteExportTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	if len(t.symbols) == 0 {
		return model.ExitStatusFailed, exception.NewBatchErrorf(moduleExport, "no symbols to export")
	}
	conn, err := t.db.GetConnection(t.cfg.Connection)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	store, err := t.storage.GetConnection(local.ExportConnection)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	pw, err := writer.NewParquetWriter[entity.EODQuoteExport](
		"eod_quote_export",
		store,
		writer.ParquetWriterConfig{
			OutputBaseDir:   entity.EODQuote{}.TableName(),
			CompressionType: t.cfg.Compression,
		},
		new(entity.EODQuoteExport),
		func(q entity.EODQuoteExport) (string, error) { return "symbol=" + q.Symbol, nil },
		t.log,
	)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := pw.Open(ctx); err != nil {
		return model.ExitStatusFailed, err
	}

	for _, symbol := range t.symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		var quotes []entity.EODQuote
		if err := conn.ExecuteQueryAdvanced(ctx, &quotes, map[string]interface{}{"symbol": symbol}, "trade_date", 0); err != nil {
			return model.ExitStatusFailed, exception.NewQueryExecutionError(moduleExport, "failed to read quotes of "+symbol, err)
		}
		se.ReadCount += len(quotes)
		if len(quotes) == 0 {
			t.log.Warnf("No EOD quotes stored for %s; nothing to export.", symbol)
			continue
		}

		rows := make([]entity.EODQuoteExport, 0, len(quotes))
		for _, q := range quotes {
			rows = append(rows, q.ToExport())
		}
		if err := pw.Write(ctx, rows); err != nil {
			return model.ExitStatusFailed, err
		}
		se.WriteCount += len(rows)
	}

	if err := pw.Close(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	se.ExecutionContext["export.files"] = pw.Written()

	if se.WriteCount == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*QuoteExportTasklet)(nil)
