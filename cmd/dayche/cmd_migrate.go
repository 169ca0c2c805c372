package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/internal/app"
)

func newMigrateCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		dir        string
		connection string
	)
	cmd := &cobra.Command{
		Use:   "migrate up|down",
		Short: "Run versioned migrations",
		Long: `Run the versioned migrations with golang-migrate.

Without --dir the built-in migrations for the connection's dialect are used;
they create the tables job executions are recorded in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "up" && args[0] != "down" {
				return fmt.Errorf("unknown migration command %q: must be up or down", args[0])
			}
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()

			migCfg := s.cfg.Migration
			if dir != "" {
				migCfg.Dir = dir
			}
			if connection != "" {
				migCfg.Connection = connection
			}
			return runJob(cmd, s, app.MigrateJob(migCfg, args[0]), stdout)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory holding NNN_name.up.sql/NNN_name.down.sql files")
	cmd.Flags().StringVar(&connection, "connection", "", "Database connection name (default from migration.connection)")
	return cmd
}
