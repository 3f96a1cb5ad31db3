package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/enrich"
	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/region"
	"github.com/sells-group/cannabis-pipeline/internal/sink"
	"github.com/sells-group/cannabis-pipeline/internal/stores"
)

const storesBaseName = "store_locations"

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "Reconcile and geocode provincial store registries",
	Long:  "Loads every provincial store registry, reconciles it into canonical records, geocodes addresses, and writes store_locations to the output directory.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		format, _ := cmd.Flags().GetString("format")
		if err := validateOutputFormat(format); err != nil {
			return err
		}

		env, err := initPipeline(ctx, "stores")
		if err != nil {
			return err
		}
		defer env.Close()

		run, err := env.startRun(ctx, "stores")
		if err != nil {
			return err
		}

		res, err := runStores(ctx, env, run, format)
		var summary model.EnrichmentSummary
		if res != nil {
			summary = res.Summary
		}
		run.Finish(summary, err)
		return err
	},
}

func init() {
	storesCmd.Flags().String("format", fetcher.FormatCSV, "output format: csv, csv.gz, parquet, xlsx")
	rootCmd.AddCommand(storesCmd)
}

func validateOutputFormat(format string) error {
	switch format {
	case fetcher.FormatCSV, fetcher.FormatCSVGzip, fetcher.FormatParquet, fetcher.FormatXLSX:
		return nil
	}
	return eris.Errorf("unsupported output format %q", format)
}

func loadSources() ([]region.Source, error) {
	if cfg.Paths.SourcesFile == "" {
		return region.DefaultSources(), nil
	}
	return region.LoadSources(cfg.Paths.SourcesFile)
}

// runStores processes every store source and writes the results to the
// output file and whichever database sinks are enabled.
func runStores(ctx context.Context, env *pipelineEnv, run *trackedRun, format string) (*stores.Result, error) {
	sources, err := loadSources()
	if err != nil {
		return nil, err
	}

	var enricher *enrich.Enricher
	if env.Geocoder != nil {
		enricher = enrich.New(env.Geocoder,
			enrich.WithRetry(cfg.Geocode.Retry()),
			enrich.WithWorkers(cfg.Geocode.Workers),
			enrich.WithMetrics(env.Metrics),
		)
	}

	res, err := stores.NewProcessor(cfg.Paths.StoreLocationsDir(), enricher, env.Metrics).Process(ctx, sources)
	if err != nil {
		return res, err
	}
	for _, name := range res.Skipped {
		run.Log.Warn("source skipped", zap.String("source", name))
	}

	path := filepath.Join(cfg.Paths.OutputDir, storesBaseName+"."+format)
	n, err := sink.WriteTable(ctx, path, sink.StoresTable(res.Stores))
	if err != nil {
		return res, eris.Wrap(err, "write store locations")
	}
	env.Metrics.OutputWritten(filepath.Base(path), n)
	run.Log.Info("store locations written", zap.String("path", path), zap.Int("rows", n))

	if env.Runs != nil {
		saved, err := env.Runs.SaveStores(ctx, run.ID, res.Stores)
		if err != nil {
			return res, err
		}
		run.Log.Info("store locations saved to sqlite", zap.Int64("rows", saved))
	}

	if env.Postgres != nil {
		if err := env.Postgres.EnsureStoresTable(ctx); err != nil {
			return res, err
		}
		copied, err := env.Postgres.CopyStores(ctx, run.ID, res.Stores)
		if err != nil {
			return res, err
		}
		run.Log.Info("store locations copied to postgres", zap.Int64("rows", copied))
	}

	s := res.Summary
	run.Log.Info("stores summary",
		zap.Int("total", s.Total),
		zap.Int("resolved", s.Resolved),
		zap.Int("unresolved", s.Unresolved),
		zap.Int("failed", s.Failed),
		zap.Int("skipped_sources", len(res.Skipped)),
	)
	return res, nil
}
