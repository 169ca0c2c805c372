package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/internal/app"
)

func newExportCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored quotes to files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "eod [SYMBOL...]",
		Short: "Write stored end-of-day bars to Parquet under export.base_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()
			return runJob(cmd, s, app.ExportJob(args), stdout)
		},
	})
	return cmd
}
