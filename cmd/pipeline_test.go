package main

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cannabis-pipeline/internal/config"
	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/observability"
	"github.com/sells-group/cannabis-pipeline/internal/report"
	"github.com/sells-group/cannabis-pipeline/internal/sink"
	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

type stubGeocoder struct{}

func (stubGeocoder) Forward(_ context.Context, _ string) geocode.Result {
	lat, lng := 43.6532, -79.3832
	return geocode.Result{Latitude: &lat, Longitude: &lng, PostalCode: "M5H 2N2", Status: geocode.StatusResolved}
}

func (stubGeocoder) Reverse(_ context.Context, _, _ float64) geocode.Result {
	return geocode.Result{PostalCode: "M5H 2N2", Status: geocode.StatusResolved}
}

const testSourcesYAML = `sources:
  - file: Ontario.csv
    province: ON
    columns: {"Store Name": StoreName, City: City, Address: Address}
`

const testSalesCSV = `REF_DATE,GEO,DGUID,Type of cannabis,UOM,UOM_ID,SCALAR_FACTOR,SCALAR_ID,VALUE,STATUS
2023-01,Ontario,2021A000235,Total,Dollars,81,thousands,3,150000,
`

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// setupPipeline points the global config at a temp tree holding one store
// source and the raw sales file, and returns an env backed by a SQLite run log.
func setupPipeline(t *testing.T) *pipelineEnv {
	t.Helper()
	root := t.TempDir()

	c := &config.Config{
		Paths: config.PathsConfig{
			RawDir:      filepath.Join(root, "raw"),
			OutputDir:   filepath.Join(root, "out"),
			SourcesFile: filepath.Join(root, "sources.yaml"),
		},
		Geocode: config.GeocodeConfig{MaxAttempts: 1, BackoffMultiplier: 1, Workers: 1},
		Clean:   config.CleanConfig{Threshold: 0.5},
		Store:   config.StoreConfig{SQLitePath: filepath.Join(root, "db", "pipeline.db")},
	}
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })

	writeTestFile(t, c.Paths.SourcesFile, testSourcesYAML)
	writeTestFile(t, filepath.Join(c.Paths.StoreLocationsDir(), "Ontario.csv"),
		"Store Name,City,Address\nQueen Cannabis,Toronto,100 Queen St W\n")
	writeTestFile(t, filepath.Join(c.Paths.RawDir, "02_cannabis_sales", "cannabis_sales.csv"), testSalesCSV)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	runs, err := openRunLog(context.Background(), clock)
	require.NoError(t, err)

	env := &pipelineEnv{
		Clock:    clock,
		Metrics:  observability.NewMetricsForTesting(),
		Geocoder: stubGeocoder{},
		Runs:     runs,
	}
	t.Cleanup(env.Close)
	return env
}

func TestRunStores(t *testing.T) {
	env := setupPipeline(t)
	ctx := context.Background()

	run, err := env.startRun(ctx, "stores")
	require.NoError(t, err)

	res, err := runStores(ctx, env, run, "csv")
	require.NoError(t, err)
	require.Len(t, res.Stores, 1)
	assert.Equal(t, 1, res.Summary.Resolved)

	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "store_locations.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Queen Cannabis")
	assert.Contains(t, string(data), "43.6532")

	saved, err := env.Runs.ListStores(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, model.Ontario, saved[0].Province)

	run.Finish(res.Summary, nil)
	got, err := env.Runs.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, "stores", got.Command)
}

func TestRunStores_MissingSourcesFile(t *testing.T) {
	env := setupPipeline(t)
	cfg.Paths.SourcesFile = filepath.Join(t.TempDir(), "absent.yaml")

	run, err := env.startRun(context.Background(), "stores")
	require.NoError(t, err)

	_, err = runStores(context.Background(), env, run, "csv")
	require.Error(t, err)

	run.Finish(model.EnrichmentSummary{}, err)
	got, err := env.Runs.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestRunDatasets_CopiesOutputsToPostgres(t *testing.T) {
	env := setupPipeline(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	env.Postgres = sink.NewPostgres(mock, "cannabis")

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "cannabis"."sales_data"`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"cannabis", "sales_data"}, []string{
		"REF_DATE", "GEO", "DGUID", "Type of cannabis",
		"UOM", "UOM_ID", "SCALAR_FACTOR", "SCALAR_ID", "VALUE",
	}).WillReturnResult(1)

	run, err := env.startRun(context.Background(), "crime")
	require.NoError(t, err)

	res, err := runDatasets(context.Background(), env, run, []string{"sales"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Built)
	assert.Zero(t, res.Failed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunDatasets_UnknownDataset(t *testing.T) {
	env := setupPipeline(t)
	run, err := env.startRun(context.Background(), "crime")
	require.NoError(t, err)

	_, err = runDatasets(context.Background(), env, run, []string{"calgary"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calgary")
}

func TestRunAll_WritesReportWithSummary(t *testing.T) {
	env := setupPipeline(t)
	run, err := env.startRun(context.Background(), "run")
	require.NoError(t, err)

	summary, err := runAll(context.Background(), env, run, "csv")
	require.NoError(t, err)

	assert.Equal(t, run.ID, summary.RunID)
	assert.Equal(t, 1, summary.Stores.Total)
	assert.Equal(t, 1, summary.DatasetsBuilt)
	// Only the sales raw file exists.
	assert.Equal(t, 5, summary.DatasetsFailed)

	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, report.FileName))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "store_locations.csv")
	assert.Contains(t, text, "sales_data.csv")
	assert.Contains(t, text, "RUN SUMMARY")
	assert.Contains(t, text, run.ID)
}

func TestStartRun_WithoutRunLog(t *testing.T) {
	env := &pipelineEnv{Clock: clockwork.NewFakeClock()}

	run, err := env.startRun(context.Background(), "report")
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	env.Clock.(*clockwork.FakeClock).Advance(3 * time.Second)
	assert.Equal(t, 3*time.Second, run.Elapsed())
	run.Finish(model.EnrichmentSummary{}, nil)
}
