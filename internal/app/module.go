// Package app wires the dayche components with Fx and runs one job per invocation.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/dayche/pkg/batch/adapter/database"
	gormadapter "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/sqlite"
	_ "github.com/tigerroll/dayche/pkg/batch/adapter/database/gorm/sqlserver"
	"github.com/tigerroll/dayche/pkg/batch/adapter/storage"
	"github.com/tigerroll/dayche/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	"github.com/tigerroll/dayche/pkg/batch/core/job/runner"
	"github.com/tigerroll/dayche/pkg/batch/core/metrics"
	inframetrics "github.com/tigerroll/dayche/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// Module provides every component a job is built from. *config.Config and
// *logger.Logger must be supplied by the caller.
var Module = fx.Options(
	logger.Module,
	inframetrics.Module,
	local.Module,
	fx.Provide(NewDBProvider),
	fx.Provide(NewJobRunner),
)

// Components are the dependencies steps are built from.
type Components struct {
	fx.In

	Config   *config.Config
	Logger   *logger.Logger
	DB       database.DBProvider
	Storage  storage.StorageProvider
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// NewDBProvider returns the GORM provider for the "database" section. Connections are closed on stop.
func NewDBProvider(lc fx.Lifecycle, cfg *config.Config, log *logger.Logger) database.DBProvider {
	p := gormadapter.NewProvider(cfg, log)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.CloseAll()
		},
	})
	return p
}

// NewJobRunner creates the runner reporting to the configured recorder and tracer.
func NewJobRunner(log *logger.Logger, recorder metrics.MetricRecorder, tracer metrics.Tracer) *runner.SimpleJobRunner {
	return runner.NewSimpleJobRunner(log, recorder, tracer)
}
