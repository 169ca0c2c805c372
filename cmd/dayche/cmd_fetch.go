package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerroll/dayche/internal/app"
	"github.com/tigerroll/dayche/internal/step/reader"
	"github.com/tigerroll/dayche/internal/step/tasklet"
)

func newFetchCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Load quotes from the quote API into the database",
	}
	cmd.AddCommand(newFetchEODCmd(stdout, stderr), newFetchIntradayCmd(stdout, stderr))
	return cmd
}

// windowFlags select the date range of a fetch.
type windowFlags struct {
	from string
	to   string
}

func (f *windowFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "First date, YYYY-MM-DD (default: ingest.lookback_days before --to)")
	cmd.Flags().StringVar(&f.to, "to", "", "Last date, YYYY-MM-DD (default: today)")
}

func (f *windowFlags) request(symbols []string) (tasklet.IngestRequest, error) {
	req := tasklet.IngestRequest{Symbols: symbols}
	var err error
	if f.from != "" {
		if req.From, err = time.Parse(time.DateOnly, f.from); err != nil {
			return req, fmt.Errorf("invalid --from %q: %w", f.from, err)
		}
	}
	if f.to != "" {
		if req.To, err = time.Parse(time.DateOnly, f.to); err != nil {
			return req, fmt.Errorf("invalid --to %q: %w", f.to, err)
		}
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.From.After(req.To) {
		return req, fmt.Errorf("--from %s is after --to %s", f.from, f.to)
	}
	return req, nil
}

func newFetchEODCmd(stdout, stderr io.Writer) *cobra.Command {
	var window windowFlags
	cmd := &cobra.Command{
		Use:   "eod [SYMBOL...]",
		Short: "Load end-of-day bars (default symbols from ingest.symbols)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := window.request(args)
			if err != nil {
				return err
			}
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()
			return runJob(cmd, s, app.EODIngestJob(req), stdout)
		},
	}
	window.bind(cmd)
	return cmd
}

func newFetchIntradayCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		window   windowFlags
		interval int
	)
	cmd := &cobra.Command{
		Use:   "intraday [SYMBOL...]",
		Short: "Load intraday bars of one interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval > 0 {
				if _, err := reader.IntervalName(interval); err != nil {
					return err
				}
			}
			req, err := window.request(args)
			if err != nil {
				return err
			}
			req.IntervalSeconds = interval
			s, err := openSession(cmd, stderr)
			if err != nil {
				return err
			}
			defer s.Close()
			return runJob(cmd, s, app.IntradayIngestJob(req), stdout)
		},
	}
	window.bind(cmd)
	cmd.Flags().IntVar(&interval, "interval", 0, "Bar size in seconds: 60, 300, 900, 1800, 3600 or 14400 (default ingest.interval_seconds)")
	return cmd
}
