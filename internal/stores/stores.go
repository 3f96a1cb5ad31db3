// Package stores loads every regional store registry, reconciles it into
// canonical records and enriches the combined batch.
package stores

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/enrich"
	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/observability"
	"github.com/sells-group/cannabis-pipeline/internal/reconcile"
	"github.com/sells-group/cannabis-pipeline/internal/region"
)

// ErrNoRegions is returned when no source produced any records.
var ErrNoRegions = eris.New("stores: no regional source was processed successfully")

// Processor turns regional sources into enriched store records.
type Processor struct {
	dir      string
	enricher *enrich.Enricher
	metrics  *observability.Metrics
}

// NewProcessor reads sources relative to dir. A nil enricher skips
// enrichment.
func NewProcessor(dir string, enricher *enrich.Enricher, metrics *observability.Metrics) *Processor {
	return &Processor{dir: dir, enricher: enricher, metrics: metrics}
}

// Result is the outcome of processing a list of sources.
type Result struct {
	Stores  []model.StoreLocation
	Summary model.EnrichmentSummary
	// Skipped names the sources that failed to load or reconcile.
	Skipped []string
}

// LoadSource reads one source and reconciles its rows.
func (p *Processor) LoadSource(ctx context.Context, src region.Source) ([]model.StoreLocation, error) {
	if err := region.Validate(src); err != nil {
		return nil, err
	}

	t, err := fetcher.ReadTable(ctx, src.Path(p.dir), fetcher.ReadOptions{
		Format: src.ResolvedFormat(),
		Sheet:  src.Sheet,
	})
	if err != nil {
		return nil, err
	}

	rows := reconcile.FilterRows(t.Records(), src.FilterColumn, string(src.Province))
	p.metrics.SourceRead(src.Label(), len(rows))

	return reconcile.Reconcile(rows, src)
}

// Process loads every source in order, skipping those that fail, then
// enriches the combined records. It fails when no source yields a record or
// the context is cancelled.
func (p *Processor) Process(ctx context.Context, sources []region.Source) (*Result, error) {
	log := zap.L().With(zap.String("component", "stores"))
	res := &Result{}

	var loaded int
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		recs, err := p.LoadSource(ctx, src)
		if err != nil {
			fields := []zap.Field{zap.String("source", src.Label()), zap.Error(err)}
			if model.IsConfigurationError(err) {
				log.Warn("skipping misconfigured source", fields...)
			} else {
				log.Error("skipping unreadable source", fields...)
			}
			p.metrics.SourceFailed(src.Label())
			res.Skipped = append(res.Skipped, src.Label())
			continue
		}

		log.Info("source loaded", zap.String("source", src.Label()), zap.Int("records", len(recs)))
		if len(recs) == 0 {
			continue
		}
		res.Stores = append(res.Stores, recs...)
		loaded++
	}

	if loaded == 0 {
		return res, ErrNoRegions
	}

	if p.enricher == nil {
		res.Summary.Total = len(res.Stores)
		return res, nil
	}

	summary, err := p.enricher.Enrich(ctx, res.Stores)
	res.Summary = summary
	if err != nil {
		return res, eris.Wrap(err, "stores: enrich")
	}

	log.Info("stores enriched",
		zap.Int("total", summary.Total),
		zap.Int("resolved", summary.Resolved),
		zap.Int("unresolved", summary.Unresolved),
		zap.Int("failed", summary.Failed),
		zap.Int("postal_backfilled", summary.PostalBackfilled),
	)
	return res, nil
}
