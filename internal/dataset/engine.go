package dataset

import (
	"context"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/observability"
	"github.com/sells-group/cannabis-pipeline/internal/sink"
)

// Engine builds datasets and writes their outputs.
type Engine struct {
	reg     *Registry
	env     *Env
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// RunOpts configures which datasets to build.
type RunOpts struct {
	Datasets []string // restrict to specific dataset names
}

// Written describes one output file written by a run.
type Written struct {
	Dataset string
	File    string
	Rows    int
	Cols    int
}

// RunResult summarizes an engine run.
type RunResult struct {
	Built   int
	Failed  int
	Outputs []Written
	// Errors maps a failed dataset name to its error message.
	Errors map[string]string
}

// NewEngine creates a new dataset engine. A nil clock uses the real clock.
func NewEngine(reg *Registry, env *Env, metrics *observability.Metrics, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		reg:     reg,
		env:     env,
		metrics: metrics,
		clock:   clock,
	}
}

// Run builds the selected datasets in registration order. A dataset that
// fails is logged and counted and the run moves on to the next one. Run
// returns an error only for an unknown dataset name or a cancelled context.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	log := zap.L().With(zap.String("component", "dataset.engine"))

	datasets, err := e.reg.Select(opts.Datasets)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Errors: make(map[string]string)}
	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return res, nil
	}

	log.Info("selected datasets", zap.Int("count", len(datasets)))

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		dsLog := log.With(zap.String("dataset", ds.Name()))
		dsLog.Info("starting build")

		start := e.clock.Now()
		written, err := e.build(ctx, ds)
		elapsed := e.clock.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			dsLog.Error("build failed", zap.Error(err), zap.Duration("elapsed", elapsed))
			e.metrics.SourceFailed(ds.Name())
			res.Errors[ds.Name()] = err.Error()
			res.Failed++
			continue
		}

		res.Outputs = append(res.Outputs, written...)
		res.Built++
		dsLog.Info("build complete",
			zap.Int("outputs", len(written)),
			zap.Duration("elapsed", elapsed),
		)
	}

	log.Info("engine run complete",
		zap.Int("built", res.Built),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (e *Engine) build(ctx context.Context, ds Dataset) ([]Written, error) {
	outputs, err := ds.Build(ctx, e.env)
	if err != nil {
		return nil, err
	}

	written := make([]Written, 0, len(outputs))
	for _, out := range outputs {
		n, err := sink.WriteTable(ctx, e.env.output(out.File), out.Table)
		if err != nil {
			return written, err
		}
		e.metrics.OutputWritten(out.File, n)
		zap.L().Info("saved output",
			zap.String("file", out.File),
			zap.Int("rows", n),
			zap.Int("cols", len(out.Table.Columns)),
		)
		written = append(written, Written{
			Dataset: ds.Name(),
			File:    out.File,
			Rows:    n,
			Cols:    len(out.Table.Columns),
		})
	}
	return written, nil
}
