// dayche applies database schema scripts and loads market quotes into them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/internal/app"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
	model "github.com/tigerroll/dayche/pkg/batch/core/domain/model"
	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

// Version metadata injected via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// errExit signals a non-zero exit after the command already reported its failure.
var errExit = errors.New("exit")

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintf(stderr, "dayche: %v\n", err) //nolint:errcheck // best-effort stderr
		}
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "dayche",
		Short:         "Schema batch applier and market quote loader",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("config", "", "Configuration file (default ./"+app.DefaultConfigFile+" when present)")
	root.PersistentFlags().String("env-file", "", "Environment file loaded before the configuration (default ./.env)")
	root.PersistentFlags().String("log-level", "", "Log level: DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		newSchemaCmd(stdout, stderr),
		newMigrateCmd(stdout, stderr),
		newFetchCmd(stdout, stderr),
		newExportCmd(stdout, stderr),
		newLogsCmd(stdout, stderr),
	)
	return root
}

// session is the configuration and logger of one command invocation.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	closer io.Closer
}

func (s *session) Close() {
	_ = s.closer.Close()
}

func openSession(cmd *cobra.Command, stderr io.Writer) (*session, error) {
	configPath, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, log, closer, err := app.Bootstrap(app.Options{
		ConfigPath: configPath,
		EnvFile:    envFile,
		LogLevel:   level,
	}, stderr)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return &session{cfg: cfg, log: log, closer: closer}, nil
}

// runJob runs job and prints one summary line per step.
func runJob(cmd *cobra.Command, s *session, job app.Job, stdout io.Writer) error {
	je, err := app.Run(cmd.Context(), s.cfg, s.log, job)
	if je != nil {
		for _, se := range je.StepExecutions {
			fmt.Fprintf(stdout, "%s/%s: %s (read=%d write=%d filtered=%d commits=%d rollbacks=%d)\n", //nolint:errcheck // best-effort stdout
				je.JobName, se.StepName, exitOf(se), se.ReadCount, se.WriteCount, se.FilterCount, se.CommitCount, se.RollbackCount)
			for _, f := range se.Failures {
				fmt.Fprintf(stdout, "  failure: %s\n", f) //nolint:errcheck // best-effort stdout
			}
		}
	}
	return err
}

func exitOf(se *model.StepExecution) model.ExitStatus {
	if se.ExitStatus == "" {
		return model.ExitStatusUnknown
	}
	return se.ExitStatus
}
