package schema

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	"github.com/tigerroll/dayche/pkg/batch/support/util/exception"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// SchemaApplyTasklet applies schema scripts to a configured database connection.
//
// When SchemaConfig.File is set that file is applied. Otherwise every "*.sql"
// file under "<dialect>/" in Scripts is applied in lexical order, where dialect
// is the connection type (e.g. "sqlserver").
type SchemaApplyTasklet struct {
	provider database.DBProvider
	cfg      config.SchemaConfig
	scripts  fs.FS
	log      *logger.Logger
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

// NewSchemaApplyTasklet creates a SchemaApplyTasklet. scripts may be nil when cfg.File is always set.
func NewSchemaApplyTasklet(
	provider database.DBProvider,
	cfg config.SchemaConfig,
	scripts fs.FS,
	log *logger.Logger,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *SchemaApplyTasklet {
	if log == nil {
		log = logger.Discard()
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	if cfg.Connection == "" {
		cfg.Connection = config.DefaultConnection
	}
	return &SchemaApplyTasklet{
		provider: provider,
		cfg:      cfg,
		scripts:  scripts,
		log:      log,
		recorder: recorder,
		tracer:   tracer,
	}
}

// Execute implements port.Tasklet.
// ReadCount receives the number of planned batches, WriteCount the number of
// successful ones, and CommitCount and RollbackCount the transaction outcomes.
func (t *SchemaApplyTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	conn, err := t.provider.GetConnection(t.cfg.Connection)
	if err != nil {
		return model.ExitStatusFailed, err
	}

	session, err := conn.OpenSession(ctx)
	if err != nil {
		return model.ExitStatusFailed, exception.NewDatabaseConnectionError(t.cfg.Connection, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			t.log.Warnf("Failed to close schema session: %v", cerr)
		}
	}()

	sources, err := t.resolveSources(conn.Type())
	if err != nil {
		return model.ExitStatusFailed, err
	}

	for _, src := range sources {
		applier, err := NewApplier(session, t.log,
			WithStopOnError(t.cfg.StopOnError),
			WithSeparator(t.cfg.Separator),
			WithCommitOnPartialFailure(t.cfg.CommitOnPartialFailure),
			WithMetricRecorder(t.recorder),
			WithTracer(t.tracer),
			WithScriptName(src.name),
		)
		if err != nil {
			return model.ExitStatusFailed, exception.NewBatchError(module, "invalid schema options", err, false, false)
		}

		script, err := src.load()
		if err != nil {
			return model.ExitStatusFailed, err
		}

		outcome, err := applier.Apply(ctx, script)
		se.ReadCount += outcome.Batches
		se.WriteCount += outcome.Succeeded
		if outcome.Committed {
			se.CommitCount++
		}
		if outcome.RolledBack {
			se.RollbackCount++
		}
		for _, f := range outcome.Failures {
			se.AddFailure(fmt.Errorf("%s: %s", src.name, f.String()))
		}
		if err != nil {
			return model.ExitStatusFailed, err
		}
	}

	if se.ReadCount == 0 {
		return model.ExitStatusNoOp, nil
	}
	return model.ExitStatusCompleted, nil
}

type scriptSource struct {
	name string
	load func() (string, error)
}

func (t *SchemaApplyTasklet) resolveSources(dialect string) ([]scriptSource, error) {
	if t.cfg.File != "" {
		file := t.cfg.File
		return []scriptSource{{
			name: path.Base(file),
			load: func() (string, error) { return LoadScript(file, t.cfg.Encoding) },
		}}, nil
	}

	names, err := EmbeddedScripts(t.scripts, dialect)
	if err != nil {
		return nil, err
	}
	sources := make([]scriptSource, 0, len(names))
	for _, name := range names {
		name := name
		sources = append(sources, scriptSource{
			name: name,
			load: func() (string, error) { return LoadScriptFS(t.scripts, name, t.cfg.Encoding) },
		})
	}
	return sources, nil
}

// EmbeddedScripts lists the "*.sql" files under "<dialect>/" in fsys in lexical order.
func EmbeddedScripts(fsys fs.FS, dialect string) ([]string, error) {
	if fsys == nil {
		return nil, &SourceUnavailableError{Path: dialect, Err: fmt.Errorf("no schema file configured and no embedded scripts available")}
	}
	names, err := fs.Glob(fsys, path.Join(dialect, "*.sql"))
	if err != nil {
		return nil, &SourceUnavailableError{Path: dialect, Err: err}
	}
	if len(names) == 0 {
		return nil, &SourceUnavailableError{Path: dialect, Err: fmt.Errorf("no schema scripts for dialect '%s'", dialect)}
	}
	sort.Strings(names)
	return names, nil
}

var _ port.Tasklet = (*SchemaApplyTasklet)(nil)
