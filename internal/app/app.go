package app

import (
	"context"
	"time"

	"go.uber.org/fx"

	port "github.com/tigerroll/dayche/pkg/batch/core/application/port"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/core/job/runner"
	sqlrepo "github.com/tigerroll/dayche/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
	"github.com/tigerroll/dayche/pkg/batch/support/util/serialization"
)

const stopTimeout = 15 * time.Second

// Job is one unit of work started from the command line.
type Job struct {
	Name   string
	Params map[string]string
	// Persist records the execution in the batch_* tables of the default connection.
	// Jobs that reopen connections, such as migrations, leave it off.
	Persist bool
	// Steps builds the steps once all components are available.
	Steps func(c Components) ([]port.Step, error)
}

// Run starts the application, runs job and stops the application again.
// The returned JobExecution is nil only when the application failed to start.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, job Job, extra ...fx.Option) (*model.JobExecution, error) {
	var (
		components Components
		jobRunner  *runner.SimpleJobRunner
	)
	opts := []fx.Option{
		fx.Supply(cfg, log),
		Module,
		fx.Invoke(func(c Components, r *runner.SimpleJobRunner) {
			components = c
			jobRunner = r
		}),
	}
	app := fx.New(append(opts, extra...)...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Errorf("Failed to stop application cleanly: %v", err)
		}
	}()

	je := model.NewJobExecution(job.Name, serialization.MaskParameters(job.Params))
	steps, err := job.Steps(components)
	if err != nil {
		je.MarkAsFailed(err)
		return je, err
	}

	if job.Persist {
		conn, err := components.DB.GetConnection(config.DefaultConnection)
		if err != nil {
			log.Warnf("Job executions are not persisted: %v", err)
		} else {
			jobRunner.WithJobRepository(sqlrepo.NewSQLJobRepository(conn, log))
		}
	}

	return je, jobRunner.Run(ctx, je, steps)
}
