package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long:  "Processes store locations, builds every dataset, and writes the shape report with a run summary.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, _ := cmd.Flags().GetString("format")
		if err := validateOutputFormat(format); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.startRun(ctx, "run")
		if err != nil {
			return err
		}

		summary, err := runAll(ctx, env, run, format)
		run.Finish(summary.Stores, err)
		return err
	},
}

func init() {
	runCmd.Flags().String("format", "csv", "store locations output format: csv, csv.gz, parquet, xlsx")
	rootCmd.AddCommand(runCmd)
}

// runAll runs stores, then every dataset, then the shape report. A store
// failure stops the run before any dataset is built.
func runAll(ctx context.Context, env *pipelineEnv, run *trackedRun, format string) (report.RunSummary, error) {
	summary := report.RunSummary{RunID: run.ID}

	storesRes, err := runStores(ctx, env, run, format)
	if storesRes != nil {
		summary.Stores = storesRes.Summary
		summary.SkippedSources = storesRes.Skipped
	}
	if err != nil {
		return summary, err
	}

	dsRes, err := runDatasets(ctx, env, run, nil)
	if dsRes != nil {
		summary.DatasetsBuilt = dsRes.Built
		summary.DatasetsFailed = dsRes.Failed
	}
	if err != nil {
		return summary, err
	}

	summary.Elapsed = run.Elapsed()
	path, err := report.Write(ctx, cfg.Paths.OutputDir, env.Clock, &summary)
	if err != nil {
		return summary, err
	}
	run.Log.Info("report written", zap.String("path", path))
	return summary, nil
}
