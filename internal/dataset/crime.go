package dataset

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

var (
	violationSuffix = regexp.MustCompile(`\s*\[[^\]]+\]$`)
	violationCode   = regexp.MustCompile(`\[([^\]]+)\]`)
)

var crimeColumns = []string{
	"REF_DATE", "GEO", "DGUID", "Violation Name",
	"Violation Code", "Statistics", "UOM", "VALUE",
}

// SplitViolation splits a label such as "Total violations [50]" into its
// name and bracketed code. A label without a code returns an empty code.
func SplitViolation(label string) (name, code string) {
	name = strings.TrimSpace(violationSuffix.ReplaceAllString(label, ""))
	if m := violationCode.FindStringSubmatch(label); m != nil {
		code = m[1]
	}
	return name, code
}

// NationalCrime splits the national incident-based crime table into rows for
// the geographies covered by the sales table (provinces and the country) and
// the remaining city-level rows.
type NationalCrime struct{}

// Name implements Dataset.
func (NationalCrime) Name() string { return "crime" }

// Build implements Dataset.
func (NationalCrime) Build(ctx context.Context, env *Env) ([]Output, error) {
	t, err := fetcher.ReadTable(ctx, env.raw("04_crime_data", "crime_data.parquet"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "crime: read")
	}
	if err := requireColumns("crime", t, "Violations", "DGUID", "VALUE"); err != nil {
		return nil, err
	}

	names := make([]string, t.Len())
	codes := make([]string, t.Len())
	for i := range t.Rows {
		names[i], codes[i] = SplitViolation(t.Value(i, "Violations"))
	}
	t.AddColumn("Violation Name", func(i int) string { return names[i] })
	t.AddColumn("Violation Code", func(i int) string { return codes[i] })

	known, err := salesGeographies(ctx, env)
	if err != nil {
		return nil, err
	}

	dguid := t.Index("DGUID")
	province := fetcher.NewTable(t.Columns)
	city := fetcher.NewTable(t.Columns)
	for _, row := range t.Rows {
		if known[row[dguid]] {
			province.Rows = append(province.Rows, row)
		} else {
			city.Rows = append(city.Rows, row)
		}
	}

	province, err = province.Select(crimeColumns...)
	if err != nil {
		return nil, eris.Wrap(err, "crime: select province columns")
	}
	city, err = city.Select(crimeColumns...)
	if err != nil {
		return nil, eris.Wrap(err, "crime: select city columns")
	}
	dropMissing(province, "VALUE")
	dropMissing(city, "VALUE", "DGUID")

	zap.L().Debug("crime: split national table",
		zap.Int("province_rows", province.Len()),
		zap.Int("city_rows", city.Len()),
	)
	return []Output{
		{File: "crime_province_national.parquet", Table: province},
		{File: "crime_city_level.parquet", Table: city},
	}, nil
}

// salesGeographies returns the DGUIDs present in the sales output, building
// the sales table from its raw input when no output exists yet.
func salesGeographies(ctx context.Context, env *Env) (map[string]bool, error) {
	var (
		sales *fetcher.Table
		err   error
	)
	path := env.output(SalesOutput)
	if _, statErr := os.Stat(path); statErr == nil {
		sales, err = fetcher.ReadTable(ctx, path, fetcher.ReadOptions{})
	} else {
		sales, err = Sales{}.read(ctx, env)
	}
	if err != nil {
		return nil, eris.Wrap(err, "crime: load sales geographies")
	}

	j := sales.Index("DGUID")
	if j < 0 {
		return nil, eris.New("crime: sales table has no DGUID column")
	}
	out := make(map[string]bool)
	for _, row := range sales.Rows {
		out[row[j]] = true
	}
	return out, nil
}
