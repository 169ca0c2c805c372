package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/pkg/batch/support/util/logger"
)

func newLogsCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Manage log files",
	}
	cmd.AddCommand(newLogsCleanupCmd(stdout, stderr))
	return cmd
}

func newLogsCleanupCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		keepDays  int
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove *.log files older than --keep-days from logging.dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()

			days := s.cfg.Logging.KeepDays
			if cmd.Flags().Changed("keep-days") {
				days = keepDays
			}
			if days <= 0 {
				return fmt.Errorf("--keep-days must be positive, got %d", days)
			}
			dir := s.cfg.Logging.Dir
			if dir == "" {
				dir = logger.DefaultBaseDir
			}

			fm := logger.NewFileManager(s.cfg.Logging.Prefix, dir, s.cfg.Logging.NamePattern, s.cfg.Logging.Level, false)
			removed, err := fm.Cleanup(days, recursive)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "removed %d log file(s) older than %d day(s) from %s\n", removed, days, dir) //nolint:errcheck // best-effort stdout
			return nil
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "Age in days after which log files are removed (default logging.keep_days)")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Also clean sub-directories")
	return cmd
}
