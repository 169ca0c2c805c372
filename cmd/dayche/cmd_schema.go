package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/internal/app"
	"github.com/tigerroll/dayche/internal/schema"
	batchschema "github.com/tigerroll/dayche/pkg/batch/component/tasklet/schema"
	config "github.com/tigerroll/dayche/pkg/batch/core/config"
)

func newSchemaCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Apply or inspect batch-separated schema scripts",
	}
	cmd.AddCommand(newSchemaApplyCmd(stdout, stderr), newSchemaPlanCmd(stdout, stderr))
	return cmd
}

// schemaFlags are the overrides shared by "schema apply" and "schema plan".
type schemaFlags struct {
	connection      string
	separator       string
	encoding        string
	continueOnError bool
	commitPartial   bool
}

func (f *schemaFlags) bind(cmd *cobra.Command, withExecution bool) {
	cmd.Flags().StringVar(&f.separator, "separator", "", "Batch separator keyword (default from schema.separator)")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "Script encoding, an IANA name such as utf-16 or windows-1252")
	if !withExecution {
		return
	}
	cmd.Flags().StringVar(&f.connection, "connection", "", "Database connection name (default from schema.connection)")
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Run every batch and report all failures instead of stopping at the first")
	cmd.Flags().BoolVar(&f.commitPartial, "commit-partial", false, "With --continue-on-error, commit the batches that succeeded")
}

// apply merges the flags that were set into cfg.
func (f *schemaFlags) apply(cmd *cobra.Command, cfg config.SchemaConfig, args []string) config.SchemaConfig {
	if len(args) > 0 {
		cfg.File = args[0]
	}
	if f.connection != "" {
		cfg.Connection = f.connection
	}
	if f.separator != "" {
		cfg.Separator = f.separator
	}
	if f.encoding != "" {
		cfg.Encoding = f.encoding
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.StopOnError = !f.continueOnError
	}
	if cmd.Flags().Changed("commit-partial") {
		cfg.CommitOnPartialFailure = f.commitPartial
	}
	return cfg
}

func newSchemaApplyCmd(stdout, stderr io.Writer) *cobra.Command {
	var flags schemaFlags
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Apply a schema script batch by batch",
		Long: `Apply a schema script to a database connection.

The script is split on lines holding only the separator keyword (GO by
default, any letter case), optionally followed by a repeat count ("GO 3").
Without a file, the built-in quote tables for the connection's dialect are
applied.

By default the first failing batch rolls back the transaction and stops the
run. With --continue-on-error every batch is attempted and all failures are
reported together.

Examples:
  dayche schema apply
  dayche schema apply ./sql/create_views.sql --continue-on-error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()

			schemaCfg := flags.apply(cmd, s.cfg.Schema, args)
			if _, err := batchschema.NewSeparator(schemaCfg.Separator); err != nil {
				return err
			}
			return runJob(cmd, s, app.SchemaApplyJob(schemaCfg), stdout)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newSchemaPlanCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		flags   schemaFlags
		dialect string
	)
	cmd := &cobra.Command{
		Use:   "plan [file]",
		Short: "Print the batches a script splits into without executing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()

			schemaCfg := flags.apply(cmd, s.cfg.Schema, args)
			sep, err := batchschema.NewSeparator(schemaCfg.Separator)
			if err != nil {
				return err
			}
			return printPlans(stdout, schemaCfg, dialect, sep)
		},
	}
	flags.bind(cmd, false)
	cmd.Flags().StringVar(&dialect, "dialect", "sqlserver", "Dialect of the built-in scripts to plan when no file is given")
	return cmd
}

func printPlans(w io.Writer, cfg config.SchemaConfig, dialect string, sep *batchschema.Separator) error {
	type source struct{ name, text string }
	var sources []source

	if cfg.File != "" {
		text, err := batchschema.LoadScript(cfg.File, cfg.Encoding)
		if err != nil {
			return err
		}
		sources = append(sources, source{cfg.File, text})
	} else {
		names, err := batchschema.EmbeddedScripts(schema.Scripts, dialect)
		if err != nil {
			return err
		}
		for _, name := range names {
			text, err := batchschema.LoadScriptFS(schema.Scripts, name, cfg.Encoding)
			if err != nil {
				return err
			}
			sources = append(sources, source{name, text})
		}
	}

	for _, src := range sources {
		plan := batchschema.Split(src.text, sep)
		fmt.Fprintf(w, "%s: %d batch(es), %d execution(s)\n", src.name, len(plan), plan.Executions()) //nolint:errcheck // best-effort stdout
		for _, b := range plan {
			repeat := ""
			if b.Repeat > 1 {
				repeat = fmt.Sprintf(" x%d", b.Repeat)
			}
			fmt.Fprintf(w, "  #%d line %d%s [%s] %s\n", b.Index+1, b.Line, repeat, batchschema.Hash(b.Text), batchschema.Snippet(b.Text)) //nolint:errcheck // best-effort stdout
		}
	}
	return nil
}
