package dataset

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/reproject"
)

// Vancouver stacks the yearly Vancouver crime tables, composes a report date
// and converts the UTM zone 10N coordinates to latitude and longitude.
type Vancouver struct {
	// FromYear and ToYear bound the yearly input files. Zero values use
	// 2014 through 2025.
	FromYear, ToYear int
}

// Name implements Dataset.
func (Vancouver) Name() string { return "vancouver" }

// ReportDate formats year, month and day cells as YYYY-MM-DD.
func ReportDate(year, month, day string) string {
	return zeroPad(year, 4) + "-" + zeroPad(month, 2) + "-" + zeroPad(day, 2)
}

// Build implements Dataset. Points that cannot be converted, including rows
// with no coordinates, get empty latitude and longitude.
func (d Vancouver) Build(ctx context.Context, env *Env) ([]Output, error) {
	from, to := d.FromYear, d.ToYear
	if from == 0 {
		from, to = 2014, 2025
	}

	t, err := readYears(ctx, env, "05_crime_by_city_data/Vancouver", "Crimes_", from, to)
	if err != nil {
		return nil, eris.Wrap(err, "vancouver: read")
	}
	if err := requireColumns("vancouver", t, "YEAR", "MONTH", "DAY", "X", "Y"); err != nil {
		return nil, err
	}

	t.AddColumn("Date_Reported", func(i int) string {
		return ReportDate(t.Value(i, "YEAR"), t.Value(i, "MONTH"), t.Value(i, "DAY"))
	})
	t.Drop("YEAR", "MONTH", "DAY", "HOUR", "MINUTE")

	points := make([]geom.Coord, t.Len())
	for i := range t.Rows {
		x, errX := strconv.ParseFloat(strings.TrimSpace(t.Value(i, "X")), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(t.Value(i, "Y")), 64)
		if errX != nil || errY != nil {
			continue
		}
		points[i] = geom.Coord{x, y}
	}

	out, errs, err := reproject.Reproject(points, reproject.NAD83UTMZone10, reproject.WGS84)
	if err != nil {
		return nil, err
	}
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	if failed > 0 {
		zap.L().Warn("vancouver: points left without coordinates", zap.Int("count", failed))
	}

	t.AddColumn("latitude", func(i int) string {
		if out[i] == nil {
			return ""
		}
		return strconv.FormatFloat(out[i].Y(), 'f', -1, 64)
	})
	t.AddColumn("longitude", func(i int) string {
		if out[i] == nil {
			return ""
		}
		return strconv.FormatFloat(out[i].X(), 'f', -1, 64)
	})
	t.Drop("X", "Y")

	return []Output{{File: "vancouver_crimes.csv", Table: t}}, nil
}
