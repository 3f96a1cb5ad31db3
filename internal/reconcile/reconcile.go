// Package reconcile maps raw regional rows onto the canonical store record.
package reconcile

import (
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/cannabis-pipeline/internal/address"
	"github.com/sells-group/cannabis-pipeline/internal/model"
	"github.com/sells-group/cannabis-pipeline/internal/region"
)

// FilterRows keeps rows whose column equals value, ignoring case and
// surrounding whitespace. An empty column keeps every row.
func FilterRows(rows []map[string]string, column, value string) []map[string]string {
	if column == "" {
		return rows
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		if strings.EqualFold(strings.TrimSpace(row[column]), value) {
			out = append(out, row)
		}
	}
	return out
}

// Reconcile converts rows read from src into canonical records, one per row
// and in the same order. Fields the source does not map are left empty for
// enrichment. A source that cannot be reconciled as declared yields a
// *model.ConfigurationError and no records.
func Reconcile(rows []map[string]string, src region.Source) ([]model.StoreLocation, error) {
	if err := region.Validate(src); err != nil {
		return nil, err
	}
	if err := checkRequiredColumn(rows, src); err != nil {
		return nil, err
	}

	fullName := src.Province.FullName()
	combined := src.Strategy() == region.AddressCombinedPostal

	out := make([]model.StoreLocation, len(rows))
	for i, row := range rows {
		rec := model.StoreLocation{
			Province:         src.Province,
			FullProvinceName: fullName,
		}

		var fullAddress, lat, lng, x, y string
		for raw, field := range src.Columns {
			val := strings.TrimSpace(row[raw])
			switch field {
			case model.FieldStoreName:
				rec.StoreName = val
			case model.FieldCity:
				rec.City = val
			case model.FieldAddress:
				rec.Address = val
			case model.FieldFullAddress:
				fullAddress = val
			case model.FieldPostalCode:
				rec.PostalCode = val
			case model.FieldLatitude:
				lat = val
			case model.FieldLongitude:
				lng = val
			case model.FieldX:
				x = val
			case model.FieldY:
				y = val
			}
		}

		if combined {
			cleaned, postal := address.Normalize(fullAddress, rec.City, fullName)
			rec.Address = cleaned
			rec.FillPostalCode(postal)
		}

		if la, lo, ok := parseLatLng(lat, lng); ok {
			rec.SetCoordinates(la, lo)
		}
		if px, py, ok := parsePair(x, y); ok {
			rec.Projected = &model.ProjectedPoint{X: px, Y: py, CRS: src.CRS}
		}

		out[i] = rec
	}
	return out, nil
}

// checkRequiredColumn verifies the raw column feeding the address is present
// in the input. A direct source without an Address mapping has nothing to check.
func checkRequiredColumn(rows []map[string]string, src region.Source) error {
	if len(rows) == 0 {
		return nil
	}
	target := model.FieldAddress
	if src.Strategy() == region.AddressCombinedPostal {
		target = model.FieldFullAddress
	}
	mapped := false
	for raw, field := range src.Columns {
		if field != target {
			continue
		}
		mapped = true
		if _, ok := rows[0][raw]; ok {
			return nil
		}
	}
	if !mapped {
		return nil
	}
	return model.NewConfigurationError(src.Label(), "input has no column mapped to %s", target)
}

// parseLatLng parses a geographic pair, rejecting missing tokens, non-finite
// values and anything outside the lat/lng range.
func parseLatLng(lat, lng string) (float64, float64, bool) {
	la, lo, ok := parsePair(lat, lng)
	if !ok || !model.ValidLatLng(la, lo) {
		return 0, 0, false
	}
	return la, lo, true
}

func parsePair(a, b string) (float64, float64, bool) {
	fa, ok := parseFinite(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := parseFinite(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

func parseFinite(s string) (float64, bool) {
	if model.IsMissing(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
