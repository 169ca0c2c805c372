package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/dayche/internal/migrations"
	"github.com/tigerroll/dayche/internal/schema"
	"github.com/tigerroll/dayche/internal/step/processor"
	"github.com/tigerroll/dayche/internal/step/reader"
	"github.com/tigerroll/dayche/internal/step/tasklet"
	"github.com/tigerroll/dayche/pkg/batch/component/tasklet/migration"
	schematasklet "github.com/tigerroll/dayche/pkg/batch/component/tasklet/schema"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
)

// SchemaApplyJob applies cfg.File, or the embedded quote schema for the connection's dialect.
func SchemaApplyJob(cfg config.SchemaConfig) Job {
	return Job{
		Name: "schema_apply",
		Params: map[string]string{
			"connection":    cfg.Connection,
			"file":          cfg.File,
			"stop_on_error": strconv.FormatBool(cfg.StopOnError),
		},
		Persist: true,
		Steps: func(c Components) ([]port.Step, error) {
			t := schematasklet.NewSchemaApplyTasklet(c.DB, cfg, schema.Scripts, c.Logger, c.Recorder, c.Tracer)
			return []port.Step{{Name: "apply", Tasklet: t}}, nil
		},
	}
}

// MigrateJob runs the versioned migrations "up" or "down".
func MigrateJob(cfg config.MigrationConfig, command string) Job {
	return Job{
		Name: "migrate_" + command,
		Params: map[string]string{
			"connection": cfg.Connection,
			"dir":        cfg.Dir,
		},
		Steps: func(c Components) ([]port.Step, error) {
			t := migration.NewMigrationTasklet(c.DB, cfg, migrations.FS, nil, command, c.Logger)
			return []port.Step{{Name: command, Tasklet: t}}, nil
		},
	}
}

// EODIngestJob loads end-of-day bars from the quote API.
func EODIngestJob(req tasklet.IngestRequest) Job {
	return Job{
		Name:    "ingest_eod",
		Params:  requestParams(req),
		Persist: true,
		Steps: func(c Components) ([]port.Step, error) {
			api, proc, err := newPipeline(c)
			if err != nil {
				return nil, err
			}
			t := tasklet.NewEODIngestTasklet(c.DB, c.Config.Ingest, api, proc, req, c.Recorder, c.Logger)
			return []port.Step{{Name: "eod", Tasklet: t}}, nil
		},
	}
}

// IntradayIngestJob loads intraday bars from the quote API.
func IntradayIngestJob(req tasklet.IngestRequest) Job {
	return Job{
		Name:    "ingest_intraday",
		Params:  requestParams(req),
		Persist: true,
		Steps: func(c Components) ([]port.Step, error) {
			api, proc, err := newPipeline(c)
			if err != nil {
				return nil, err
			}
			t := tasklet.NewIntradayIngestTasklet(c.DB, c.Config.Ingest, api, proc, req, c.Recorder, c.Logger)
			return []port.Step{{Name: "intraday", Tasklet: t}}, nil
		},
	}
}

// ExportJob writes the stored EOD bars of symbols to Parquet files under export.base_dir.
func ExportJob(symbols []string) Job {
	return Job{
		Name:    "export_eod",
		Params:  map[string]string{"symbols": strings.Join(symbols, ",")},
		Persist: true,
		Steps: func(c Components) ([]port.Step, error) {
			if len(symbols) == 0 {
				symbols = c.Config.Ingest.Symbols
			}
			t := tasklet.NewQuoteExportTasklet(c.DB, c.Storage, c.Config.Export, symbols, c.Logger)
			return []port.Step{{Name: "export", Tasklet: t}}, nil
		},
	}
}

func newPipeline(c Components) (*reader.QuoteAPIReader, *processor.QuoteProcessor, error) {
	api, err := reader.NewQuoteAPIReader(c.Config.API, &http.Client{Timeout: c.Config.API.Timeout()}, c.Recorder, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	proc, err := processor.NewQuoteProcessor(c.Config.Ingest.Timezone, c.Config.Ingest.SkipLimit, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	return api, proc, nil
}

func requestParams(req tasklet.IngestRequest) map[string]string {
	params := map[string]string{"symbols": strings.Join(req.Symbols, ",")}
	if !req.From.IsZero() {
		params["from"] = req.From.Format(time.DateOnly)
	}
	if !req.To.IsZero() {
		params["to"] = req.To.Format(time.DateOnly)
	}
	if req.IntervalSeconds > 0 {
		params["interval_seconds"] = strconv.Itoa(req.IntervalSeconds)
	}
	return params
}
