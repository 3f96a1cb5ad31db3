// Package enrich fills missing coordinates and postal codes on canonical store
// records through the geocoding client.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/observability"
	"github.com/sells-group/cannabis-pipeline/internal/resilience"
	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

// outcome is the final enrichment state of one record.
type outcome string

const (
	outcomeResolved       outcome = "resolved"
	outcomeUnresolved     outcome = "unresolved"
	outcomeFailed         outcome = "failed"
	outcomeAlreadyLocated outcome = "already_located"
	outcomeReprojected    outcome = "reprojected"
)

var errNoMatch = eris.New("enrich: no match")

// Option configures an Enricher.
type Option func(*Enricher)

// WithRetry sets the forward-lookup retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(e *Enricher) {
		e.retry = cfg
	}
}

// WithWorkers resolves up to n records concurrently. The client's rate
// limiter still bounds the aggregate request rate.
func WithWorkers(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMetrics records per-record outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Enricher) {
		e.metrics = m
	}
}

// Enricher drives geocoding for batches of store records. It mutates only
// the records it is handed.
type Enricher struct {
	client  geocode.Client
	retry   resilience.RetryConfig
	workers int
	metrics *observability.Metrics
}

// New creates an Enricher backed by client.
func New(client geocode.Client, opts ...Option) *Enricher {
	e := &Enricher{
		client:  client,
		retry:   resilience.DefaultRetryConfig(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query builds the forward-lookup query for a record.
func Query(rec *model.StoreLocation) string {
	return fmt.Sprintf("%s, %s, %s, Canada", rec.Address, rec.City, rec.FullProvinceName)
}

// Enrich runs the forward pass and then the postal backfill over recs.
func (e *Enricher) Enrich(ctx context.Context, recs []model.StoreLocation) (model.EnrichmentSummary, error) {
	summary, err := e.Forward(ctx, recs)
	if err != nil {
		return summary, err
	}
	n, err := e.BackfillPostal(ctx, recs)
	summary.PostalBackfilled += n
	return summary, err
}

// Forward gives every record coordinates where possible: projected records
// are reprojected and the rest are geocoded from their address. Records that
// cannot be resolved keep nil coordinates and stay in place. It returns early
// only on context cancellation or an unsupported reference system.
func (e *Enricher) Forward(ctx context.Context, recs []model.StoreLocation) (model.EnrichmentSummary, error) {
	summary := model.EnrichmentSummary{Total: len(recs)}

	reprojected, failed, err := reprojectBatch(recs)
	if err != nil {
		return summary, err
	}
	summary.Reprojected = reprojected
	summary.ReprojectFailed = failed

	outcomes := make([]outcome, len(recs))
	if e.workers <= 1 {
		for i := range recs {
			if err := ctx.Err(); err != nil {
				return tally(summary, outcomes), err
			}
			outcomes[i] = e.resolve(ctx, &recs[i])
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.workers)
		for i := range recs {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = e.resolve(gctx, &recs[i])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return tally(summary, outcomes), err
		}
		if err := ctx.Err(); err != nil {
			return tally(summary, outcomes), err
		}
	}

	summary = tally(summary, outcomes)
	for _, o := range outcomes {
		e.metrics.RecordOutcome(string(o))
	}
	return summary, nil
}

func tally(s model.EnrichmentSummary, outcomes []outcome) model.EnrichmentSummary {
	for _, o := range outcomes {
		switch o {
		case outcomeResolved:
			s.Resolved++
		case outcomeUnresolved:
			s.Unresolved++
		case outcomeFailed:
			s.Failed++
		case outcomeAlreadyLocated:
			s.AlreadyLocated++
		}
	}
	return s
}

// resolve runs the forward lookup with retries for one record.
func (e *Enricher) resolve(ctx context.Context, rec *model.StoreLocation) outcome {
	if rec.HasCoordinates() {
		if rec.Projected != nil {
			return outcomeReprojected
		}
		return outcomeAlreadyLocated
	}
	if strings.TrimSpace(rec.Address) == "" {
		zap.L().Debug("enrich: no address to geocode",
			zap.String("store", rec.StoreName),
			zap.String("province", string(rec.Province)),
		)
		return outcomeUnresolved
	}

	query := Query(rec)
	cfg := e.retry
	cfg.ShouldRetry = func(err error) bool { return !resilience.IsPermanent(err) }
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Debug("enrich: forward lookup retry",
			zap.String("query", query),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.retry.MaxAttempts),
			zap.Error(err),
		)
	}

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (geocode.Result, error) {
		r := e.client.Forward(ctx, query)
		if r.Resolved() && r.HasLocation() {
			return r, nil
		}
		if r.Err != nil {
			return r, r.Err
		}
		return r, errNoMatch
	})
	if err != nil {
		zap.L().Warn("enrich: geocoding failed",
			zap.String("query", query),
			zap.String("status", res.Status.String()),
			zap.Error(err),
		)
		rec.ClearCoordinates()
		if res.Status == geocode.StatusFailed {
			return outcomeFailed
		}
		return outcomeUnresolved
	}

	rec.SetCoordinates(*res.Latitude, *res.Longitude)
	rec.FillPostalCode(res.PostalCode)
	return outcomeResolved
}

// BackfillPostal issues one reverse lookup for every record that has
// coordinates but no postal code, and returns how many were filled. A postal
// code already present is never replaced.
func (e *Enricher) BackfillPostal(ctx context.Context, recs []model.StoreLocation) (int, error) {
	filled := 0
	for i := range recs {
		if err := ctx.Err(); err != nil {
			return filled, err
		}
		rec := &recs[i]
		if !rec.HasCoordinates() || rec.PostalCode != "" {
			continue
		}

		r := e.client.Reverse(ctx, *rec.Latitude, *rec.Longitude)
		if !r.Resolved() {
			zap.L().Debug("enrich: reverse lookup found no postal code",
				zap.String("address", rec.Address),
				zap.Error(r.Err),
			)
			continue
		}
		if rec.FillPostalCode(r.PostalCode) {
			filled++
			zap.L().Debug("enrich: filled missing postal code",
				zap.String("address", rec.Address),
				zap.String("postal_code", r.PostalCode),
			)
		}
	}
	return filled, nil
}
