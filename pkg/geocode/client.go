// Package geocode resolves addresses to coordinates and coordinates to postal codes
// via the Google Geocoding API.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/sells-group/cannabis-pipeline/internal/observability"
)

// Client resolves forward and reverse geocoding lookups. Implementations never
// return transport errors to the caller; failures surface as a Result status.
type Client interface {
	// Forward resolves a free-text address query to coordinates and, when
	// available, a postal code.
	Forward(ctx context.Context, query string) Result

	// Reverse resolves coordinates to a postal code.
	Reverse(ctx context.Context, lat, lng float64) Result
}

// Status classifies the outcome of a lookup.
type Status int

const (
	// StatusResolved means the service reported a match.
	StatusResolved Status = iota + 1
	// StatusUnresolved means the request was valid but yielded no usable match.
	StatusUnresolved
	// StatusFailed means the lookup could not complete (transport error,
	// non-200 response, malformed body). Treated as unresolved by callers.
	StatusFailed
)

// String returns the metric/log label for the status.
func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result holds the outcome of a lookup. Latitude and Longitude are set together
// on forward matches; PostalCode is "" when the service returned none.
type Result struct {
	Latitude   *float64
	Longitude  *float64
	PostalCode string
	Status     Status
	Cached     bool
	Err        error // diagnostic for unresolved and failed lookups
}

// Resolved reports whether the lookup produced a match.
func (r Result) Resolved() bool {
	return r.Status == StatusResolved
}

// HasLocation reports whether both coordinates are present.
func (r Result) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithAPIKey sets the Google Geocoding API key.
func WithAPIKey(key string) Option {
	return func(g *geocoder) {
		g.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Geocoding API endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient
// is copied first and never modified.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		if d > 0 {
			hc := *g.httpClient
			hc.Timeout = d
			g.httpClient = &hc
		}
	}
}

// WithRequestDelay enforces a minimum delay between remote requests. The delay
// is shared by every caller of the client, so it bounds the aggregate rate.
func WithRequestDelay(d time.Duration) Option {
	return func(g *geocoder) {
		if d <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLimiter sets the rate limiter directly.
func WithLimiter(l *rate.Limiter) Option {
	return func(g *geocoder) {
		g.limiter = l
	}
}

// WithMetrics records request and cache metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *geocoder) {
		g.metrics = m
	}
}

type geocoder struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	limiter    *rate.Limiter
	cache      *cache
	inflight   singleflight.Group
	metrics    *observability.Metrics
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    googleGeocodeURL,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		cache:      newCache(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// normalizeQuery trims and NFC-normalizes a query so composed and decomposed
// accents ("Montréal") share one cache entry.
func normalizeQuery(q string) string {
	return norm.NFC.String(strings.TrimSpace(q))
}

// Forward resolves a query, consulting the cache first. Only resolved results
// are cached, so an unresolved query is looked up again on the next call.
func (g *geocoder) Forward(ctx context.Context, query string) Result {
	key := normalizeQuery(query)
	if key == "" {
		return Result{Status: StatusUnresolved}
	}

	if r, ok := g.cache.get(key); ok {
		g.metrics.GeocodeCacheLookup(methodForward, true)
		r.Cached = true
		return r
	}
	g.metrics.GeocodeCacheLookup(methodForward, false)

	v, _, _ := g.inflight.Do(key, func() (any, error) {
		// A concurrent caller may have populated the entry while we waited.
		if r, ok := g.cache.get(key); ok {
			return r, nil
		}
		r := g.forwardGoogle(ctx, key)
		if r.Resolved() {
			g.cache.put(key, r)
		}
		return r, nil
	})
	return v.(Result)
}

// Reverse resolves coordinates to a postal code. Reverse results are not cached.
func (g *geocoder) Reverse(ctx context.Context, lat, lng float64) Result {
	return g.reverseGoogle(ctx, lat, lng)
}
