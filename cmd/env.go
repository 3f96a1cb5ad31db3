package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/observability"
	"github.com/sells-group/cannabis-pipeline/internal/sink"
	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

// pipelineEnv holds the clients and sinks shared by the pipeline commands.
type pipelineEnv struct {
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Geocoder geocode.Client    // nil without an API key
	Runs     *sink.SQLiteStore // may be nil
	Postgres *sink.Postgres    // may be nil
	pool     *pgxpool.Pool
	server   *metricsServer
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pe.server.Shutdown(ctx); err != nil {
			zap.L().Warn("metrics server shutdown", zap.Error(err))
		}
	}
	if pe.pool != nil {
		pe.pool.Close()
	}
	if pe.Runs != nil {
		_ = pe.Runs.Close()
	}
}

// initPipeline validates the configuration for mode and opens the geocoder,
// run log, Postgres sink and metrics endpoint it enables. Callers should
// defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &pipelineEnv{
		Clock:   clockwork.NewRealClock(),
		Metrics: observability.NewMetrics(),
	}

	if cfg.Geocode.APIKey != "" {
		env.Geocoder = newGeocoder(env.Metrics)
	} else {
		zap.L().Debug("GOOGLE_API_KEY not set, geocoding disabled")
	}

	if cfg.Store.SQLitePath != "" {
		runs, err := openRunLog(ctx, env.Clock)
		if err != nil {
			return nil, err
		}
		env.Runs = runs
	}

	if cfg.Store.PostgresURL != "" {
		pool, err := sink.Connect(ctx, cfg.Store.PostgresURL)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.pool = pool
		env.Postgres = sink.NewPostgres(pool, cfg.Store.PostgresSchema)
		zap.L().Info("postgres sink enabled", zap.String("schema", cfg.Store.PostgresSchema))
	}

	if cfg.Metrics.Addr != "" {
		env.server = startMetricsServer(cfg.Metrics.Addr)
	}

	return env, nil
}

func newGeocoder(metrics *observability.Metrics) geocode.Client {
	opts := []geocode.Option{
		geocode.WithAPIKey(cfg.Geocode.APIKey),
		geocode.WithTimeout(cfg.Geocode.Timeout),
		geocode.WithRequestDelay(cfg.Geocode.RequestDelay),
		geocode.WithMetrics(metrics),
	}
	if cfg.Geocode.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	return geocode.NewClient(opts...)
}

func openRunLog(ctx context.Context, clock clockwork.Clock) (*sink.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
		return nil, eris.Wrap(err, "create run log directory")
	}
	st, err := sink.NewSQLite(cfg.Store.SQLitePath, clock)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate run log")
	}
	return st, nil
}

// trackedRun is one command execution recorded in the run log.
type trackedRun struct {
	ID      string
	Log     *zap.Logger
	Started time.Time

	env *pipelineEnv
}

// startRun records a new run when the run log is enabled. Without one it
// still assigns an ID so logs and Postgres rows can be correlated.
func (pe *pipelineEnv) startRun(ctx context.Context, command string) (*trackedRun, error) {
	tr := &trackedRun{env: pe, Started: pe.Clock.Now()}
	if pe.Runs != nil {
		run, err := pe.Runs.CreateRun(ctx, command)
		if err != nil {
			return nil, err
		}
		tr.ID = run.ID
	} else {
		tr.ID = uuid.New().String()
	}
	tr.Log = zap.L().With(zap.String("command", command), zap.String("run_id", tr.ID))
	tr.Log.Info("run started")
	return tr, nil
}

// Elapsed returns the time since the run started.
func (tr *trackedRun) Elapsed() time.Duration {
	return tr.env.Clock.Since(tr.Started)
}

// Finish marks the run complete or failed in the run log.
func (tr *trackedRun) Finish(summary model.EnrichmentSummary, runErr error) {
	if runErr != nil {
		tr.Log.Error("run failed", zap.Error(runErr), zap.Duration("elapsed", tr.Elapsed()))
	} else {
		tr.Log.Info("run complete", zap.Duration("elapsed", tr.Elapsed()))
	}
	if tr.env.Runs == nil {
		return
	}
	// The command context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.env.Runs.FinishRun(ctx, tr.ID, summary, runErr); err != nil {
		tr.Log.Warn("record run result", zap.Error(err))
	}
}
