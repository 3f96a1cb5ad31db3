package dataset

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// Edmonton stacks the yearly Edmonton crime tables and geocodes each row's
// intersection.
type Edmonton struct {
	// FromYear and ToYear bound the yearly input files. Zero values use
	// 2022 through 2025.
	FromYear, ToYear int
}

// Name implements Dataset.
func (Edmonton) Name() string { return "edmonton" }

// EdmontonAddress builds the geocoding query for an intersection.
func EdmontonAddress(intersection string) string {
	if missing(intersection) {
		return ""
	}
	return intersection + ", Edmonton, AB, Canada"
}

type point struct {
	lat, lng string
}

// Build implements Dataset. Each distinct address is looked up once; rows
// whose address does not resolve get empty coordinates.
func (d Edmonton) Build(ctx context.Context, env *Env) ([]Output, error) {
	if env.Geocoder == nil {
		return nil, model.NewConfigurationError("edmonton", "a geocoder is required")
	}
	from, to := d.FromYear, d.ToYear
	if from == 0 {
		from, to = 2022, 2025
	}

	t, err := readYears(ctx, env, "05_crime_by_city_data/Edmonton", "Crimes_", from, to)
	if err != nil {
		return nil, eris.Wrap(err, "edmonton: read")
	}
	if err := requireColumns("edmonton", t, "Intersection"); err != nil {
		return nil, err
	}

	t.AddColumn("Full_Address", func(i int) string {
		return EdmontonAddress(t.Value(i, "Intersection"))
	})

	log := zap.L().With(zap.String("component", "dataset.edmonton"))
	points := make(map[string]point)
	for i := range t.Rows {
		addr := t.Value(i, "Full_Address")
		if addr == "" {
			continue
		}
		if _, ok := points[addr]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := env.Geocoder.Forward(ctx, addr)
		var p point
		if res.Resolved() && res.HasLocation() {
			p = point{
				lat: strconv.FormatFloat(*res.Latitude, 'f', -1, 64),
				lng: strconv.FormatFloat(*res.Longitude, 'f', -1, 64),
			}
		}
		points[addr] = p

		if len(points)%10 == 0 {
			log.Info("geocoding progress",
				zap.Int("addresses", len(points)),
				zap.String("sample", addr),
				zap.String("latitude", p.lat),
				zap.String("longitude", p.lng),
				zap.String("postal_code", res.PostalCode),
			)
		}
	}
	log.Info("geocoded addresses", zap.Int("unique", len(points)))

	t.AddColumn("latitude", func(i int) string { return points[t.Value(i, "Full_Address")].lat })
	t.AddColumn("longitude", func(i int) string { return points[t.Value(i, "Full_Address")].lng })

	return []Output{{File: "edmonton_crimes.parquet", Table: t}}, nil
}
