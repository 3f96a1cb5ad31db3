package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrMissingAPIKey is reported on every lookup made without an API key.
var ErrMissingAPIKey = eris.New("geocode: google api key not configured")

const (
	methodForward = "forward"
	methodReverse = "reverse"

	// statusOK is the only status token the API uses to signal a match.
	statusOK = "OK"

	postalCodeType = "postal_code"
)

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	AddressComponents []addressComponent `json:"address_components"`
}

type addressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

// postalCode returns the first postal_code component of the result, or "".
func (r googleResult) postalCode() string {
	for _, c := range r.AddressComponents {
		if slices.Contains(c.Types, postalCodeType) {
			return c.LongName
		}
	}
	return ""
}

// forwardGoogle issues one forward lookup and classifies the response.
func (g *geocoder) forwardGoogle(ctx context.Context, query string) Result {
	resp, err := g.request(ctx, methodForward, url.Values{"address": {query}})
	if err != nil {
		zap.L().Debug("geocode: forward request failed", zap.String("query", query), zap.Error(err))
		return Result{Status: StatusFailed, Err: err}
	}

	if resp.Status != statusOK || len(resp.Results) == 0 {
		return Result{Status: StatusUnresolved, Err: eris.Errorf("geocode: no match (status %s)", resp.Status)}
	}

	first := resp.Results[0]
	lat, lng := first.Geometry.Location.Lat, first.Geometry.Location.Lng
	return Result{
		Latitude:   &lat,
		Longitude:  &lng,
		PostalCode: first.postalCode(),
		Status:     StatusResolved,
	}
}

// reverseGoogle issues one reverse lookup and returns the first postal code
// found across all returned results.
func (g *geocoder) reverseGoogle(ctx context.Context, lat, lng float64) Result {
	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	resp, err := g.request(ctx, methodReverse, url.Values{"latlng": {latlng}})
	if err != nil {
		zap.L().Debug("geocode: reverse request failed", zap.String("latlng", latlng), zap.Error(err))
		return Result{Status: StatusFailed, Err: err}
	}

	if resp.Status != statusOK {
		return Result{Status: StatusUnresolved, Err: eris.Errorf("geocode: no match (status %s)", resp.Status)}
	}

	for _, r := range resp.Results {
		if pc := r.postalCode(); pc != "" {
			return Result{PostalCode: pc, Status: StatusResolved}
		}
	}
	return Result{Status: StatusUnresolved, Err: eris.New("geocode: no postal code in reverse results")}
}

// request waits for the rate limiter, performs the GET and decodes the body.
// Every outcome is recorded in the request metrics.
func (g *geocoder) request(ctx context.Context, method string, params url.Values) (resp *googleGeocodeResponse, err error) {
	if g.apiKey == "" {
		return nil, resilience.Permanent(ErrMissingAPIKey)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	start := time.Now()
	defer func() {
		outcome := StatusFailed
		if err == nil {
			outcome = StatusUnresolved
			if resp.Status == statusOK && len(resp.Results) > 0 {
				outcome = StatusResolved
			}
		}
		g.metrics.GeocodeRequest(method, outcome.String(), time.Since(start))
	}()

	params.Set("key", g.apiKey)
	reqURL := g.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	httpResp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer httpResp.Body.Close() //nolint:errcheck

	if httpResp.StatusCode != http.StatusOK {
		err := eris.Errorf("geocode: google returned status %d", httpResp.StatusCode)
		if resilience.IsTransientHTTPStatus(httpResp.StatusCode) {
			return nil, resilience.NewTransientError(err, httpResp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var decoded googleGeocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if decoded.Status == "" {
		return nil, eris.New("geocode: response missing status")
	}

	return &decoded, nil
}
