package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/dataset"
	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
)

var crimeCmd = &cobra.Command{
	Use:   "crime",
	Short: "Clean sales, retail trade and crime datasets",
	Long:  "Builds the sales, retail trade, national crime and city crime outputs. Edmonton needs a geocoding API key.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		datasetsStr, _ := cmd.Flags().GetString("datasets")

		env, err := initPipeline(ctx, "crime")
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.startRun(ctx, "crime")
		if err != nil {
			return err
		}

		_, err = runDatasets(ctx, env, run, parseDatasets(datasetsStr))
		run.Finish(model.EnrichmentSummary{}, err)
		return err
	},
}

func init() {
	crimeCmd.Flags().String("datasets", "", "comma-separated dataset names (e.g., sales,toronto); empty builds all")
	rootCmd.AddCommand(crimeCmd)
}

func parseDatasets(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// runDatasets builds the named datasets and, when Postgres is enabled, loads
// each written output into a table named after its file.
func runDatasets(ctx context.Context, env *pipelineEnv, run *trackedRun, names []string) (*dataset.RunResult, error) {
	engine := dataset.NewEngine(dataset.NewRegistry(), &dataset.Env{
		RawDir:    cfg.Paths.RawDir,
		OutputDir: cfg.Paths.OutputDir,
		Geocoder:  env.Geocoder,
		Threshold: cfg.Clean.Threshold,
	}, env.Metrics, env.Clock)

	res, err := engine.Run(ctx, dataset.RunOpts{Datasets: names})
	if err != nil {
		return res, err
	}

	for name, msg := range res.Errors {
		run.Log.Warn("dataset failed", zap.String("dataset", name), zap.String("error", msg))
	}
	run.Log.Info("datasets built", zap.Int("built", res.Built), zap.Int("failed", res.Failed))

	if env.Postgres != nil {
		for _, w := range res.Outputs {
			if err := copyOutput(ctx, env, run, w); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func copyOutput(ctx context.Context, env *pipelineEnv, run *trackedRun, w dataset.Written) error {
	t, err := fetcher.ReadTable(ctx, filepath.Join(cfg.Paths.OutputDir, w.File), fetcher.ReadOptions{})
	if err != nil {
		return eris.Wrapf(err, "reload %s", w.File)
	}
	table := outputTableName(w.File)
	n, err := env.Postgres.CopyTable(ctx, table, t)
	if err != nil {
		return err
	}
	run.Log.Info("output copied to postgres", zap.String("table", table), zap.Int64("rows", n))
	return nil
}

// outputTableName strips the directory and format extension from file.
func outputTableName(file string) string {
	base := filepath.Base(file)
	if ext := fetcher.DetectFormat(base); ext != "" {
		base = strings.TrimSuffix(base, "."+ext)
	}
	return base
}
