package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/export"
	"github.com/withObsrvr/medallion-warehouse/metrics"
	"github.com/withObsrvr/medallion-warehouse/pipeline"
	"github.com/withObsrvr/medallion-warehouse/quality"
	"github.com/withObsrvr/medallion-warehouse/runlog"
	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "medallion-warehouse",
		Short: "Load CRM and ERP extracts into a bronze/silver/gold warehouse",
		Long: `Loads six CRM and ERP source extracts into a layered warehouse:
raw bronze tables, cleansed silver tables and a gold star schema with
customer and product dimensions and a sales fact.

Every run is a full truncate-and-reload of every table.`,
		Example: `  # Run a full load with the settings in config.yaml
  $ medallion-warehouse run -c config.yaml

  # Run a load and keep serving /metrics afterwards
  $ medallion-warehouse run -c config.yaml --serve

  # Check the loaded warehouse
  $ medallion-warehouse check -c config.yaml`,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")

	root.AddCommand(newRunCmd(opts), newCheckCmd(opts), newTablesCmd(opts))
	return root
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var serve bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a full warehouse load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, serve, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "keep the health and metrics server running after the load")
	return cmd
}

func runLoad(opts *rootOptions, serve bool, out io.Writer) error {
	cfg, logger, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// The load itself is never cancelled once started.
	ctx := context.Background()

	src, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open feeds: %w", err)
	}
	defer closeSource()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	options := []pipeline.Option{
		pipeline.WithObserver(metrics.NewCollector(reg)),
		pipeline.WithRunRecorder(runlog.NewRecorder(st, logger.Named("runlog"))),
	}
	if cfg.Export.ParquetDir != "" {
		options = append(options, pipeline.WithExporter(export.NewWriter(cfg.Export.ParquetDir, logger.Named("export"))))
	}
	orchestrator := pipeline.New(src, st, logger.Named("pipeline"), options...)

	health := NewHealthServer(orchestrator, cfg, reg, logger.Named("health"))
	go func() {
		if err := health.Start(); err != nil {
			logger.Error("Health server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		health.Shutdown(shutdownCtx)
	}()

	report, runErr := orchestrator.Run(ctx)
	if report != nil {
		printReport(out, report)
	}

	if serve {
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("Serving health and metrics until interrupted")
		<-sigCtx.Done()
	}
	return runErr
}

// printReport writes the per-step and per-stage timings of a run.
func printReport(w io.Writer, r *pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RUN\t%s\t%s\n", r.RunID, r.Status)
	fmt.Fprintln(tw, "STEP\tROWS\tDURATION")
	for _, s := range r.Steps {
		rows := fmt.Sprint(s.Rows)
		if s.Err != nil {
			rows = "FAILED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Step, rows, s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(tw, "STAGE\t\tDURATION")
	for _, s := range r.Stages {
		fmt.Fprintf(tw, "%s\t\t%s\n", s.Stage, s.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(tw, "total\t\t%s\n", r.Duration.Round(time.Millisecond))
	tw.Flush()

	if failed := quality.Failed(r.Quality); len(failed) > 0 {
		fmt.Fprintf(w, "\n%d of %d quality checks failed:\n", len(failed), len(r.Quality))
		for _, q := range failed {
			fmt.Fprintf(w, "  %s (%s): %s\n", q.CheckName, q.Dataset, q.Details)
		}
	}
	if r.Err != nil {
		fmt.Fprintf(w, "\nload failed at %s: %v\n", r.FailedStep, r.Err)
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "run data-quality checks against the loaded warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			st, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()

			q, ok := st.(store.Querier)
			if !ok {
				return fmt.Errorf("store driver %q does not support SQL checks", cfg.Store.Driver)
			}
			return runChecks(ctx, q, logger, cmd.OutOrStdout())
		},
	}
}

func runChecks(ctx context.Context, q store.Querier, logger *zap.Logger, out io.Writer) error {
	results := quality.RunAll(ctx, quality.SQLChecks(q), logger.Named("quality"))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHECK\tTYPE\tDATASET\tRESULT\tDETAILS")
	for _, r := range results {
		verdict := "ok"
		switch {
		case r.Passed:
		case r.CheckType == quality.Completeness:
			verdict = "WARN"
		default:
			verdict = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.CheckName, r.CheckType, r.Dataset, verdict, r.Details)
	}
	tw.Flush()

	if failed, err := runlog.CountByStatus(ctx, q, string(pipeline.Failed)); err == nil {
		fmt.Fprintf(out, "\nfailed loads in run log: %d\n", failed)
	}

	if failed := quality.Blocking(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d quality checks failed", len(failed), len(results))
	}
	return nil
}

func newTablesCmd(opts *rootOptions) *cobra.Command {
	var counts bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "list the warehouse tables and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var counter store.Counter
			if counts {
				cfg, logger, err := loadConfig(opts.configPath)
				if err != nil {
					return err
				}
				defer logger.Sync()

				st, err := openStore(cmd.Context(), cfg, logger)
				if err != nil {
					return fmt.Errorf("failed to open store: %w", err)
				}
				defer st.Close()

				c, ok := st.(store.Counter)
				if !ok {
					return fmt.Errorf("store driver %q cannot count rows", cfg.Store.Driver)
				}
				counter = c
			}
			return listTables(cmd.Context(), counter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&counts, "counts", false, "also show the row count of each table")
	return cmd
}

func listTables(ctx context.Context, counter store.Counter, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, t := range schema.Tables() {
		line := t.String()
		if counter != nil {
			n, err := counter.Count(ctx, t)
			if err != nil {
				return err
			}
			line = fmt.Sprintf("%s\t%d rows", line, n)
		}
		fmt.Fprintln(tw, line)

		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Type
		}
		fmt.Fprintf(tw, "  %s\n", strings.Join(cols, ", "))
	}
	return tw.Flush()
}
