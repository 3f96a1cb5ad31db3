package dataset

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

// NAICSColumn is the industry classification column of the retail trade table.
const NAICSColumn = "North American Industry Classification System (NAICS)"

// RetailTrade keeps the cannabis retailer rows of the retail trade table and
// cleans them.
type RetailTrade struct{}

// Name implements Dataset.
func (RetailTrade) Name() string { return "retail" }

// Build implements Dataset.
func (RetailTrade) Build(ctx context.Context, env *Env) ([]Output, error) {
	t, err := fetcher.ReadTable(ctx, env.raw("03_retail_trade", "retail_trade.csv"), fetcher.ReadOptions{})
	if err != nil {
		return nil, eris.Wrap(err, "retail: read")
	}
	if err := requireColumns("retail", t, NAICSColumn); err != nil {
		return nil, err
	}

	naics := t.Index(NAICSColumn)
	t.Filter(func(i int) bool {
		return strings.Contains(t.Rows[i][naics], "Cannabis retailers")
	})

	DropHighMissing(t, env.threshold())
	dropMissing(t, "VALUE")

	if j := t.Index("REF_DATE"); j >= 0 {
		for _, row := range t.Rows {
			row[j] = isoDate(row[j])
		}
	}
	if j := t.Index("VALUE"); j >= 0 {
		for _, row := range t.Rows {
			row[j] = number(row[j])
		}
	}

	zap.L().Debug("retail: cleaned",
		zap.Int("rows", t.Len()),
		zap.Int("cols", len(t.Columns)),
	)
	return []Output{{File: "retail_trade_data.csv", Table: t}}, nil
}
