package dataset

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

// Sales output file, also read back by NationalCrime.
const SalesOutput = "sales_data.csv"

var salesColumns = []string{
	"REF_DATE", "GEO", "DGUID", "Type of cannabis",
	"UOM", "UOM_ID", "SCALAR_FACTOR", "SCALAR_ID", "VALUE",
}

// Sales trims the monthly cannabis sales table to its reporting columns.
type Sales struct{}

// Name implements Dataset.
func (Sales) Name() string { return "sales" }

// Build implements Dataset.
func (s Sales) Build(ctx context.Context, env *Env) ([]Output, error) {
	t, err := s.read(ctx, env)
	if err != nil {
		return nil, err
	}
	return []Output{{File: SalesOutput, Table: t}}, nil
}

func (Sales) read(ctx context.Context, env *Env) (*fetcher.Table, error) {
	raw, err := fetcher.ReadTable(ctx, env.raw("02_cannabis_sales", "cannabis_sales.csv"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "sales: read")
	}
	t, err := raw.Select(salesColumns...)
	if err != nil {
		return nil, eris.Wrap(err, "sales: select columns")
	}
	return t, nil
}
