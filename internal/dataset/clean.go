package dataset

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// missing reports whether a cell holds no value.
func missing(v string) bool {
	return model.IsMissing(v)
}

// DropHighMissing removes every column whose share of missing cells is at or
// above threshold, then every row whose share of missing cells among the
// remaining columns is at or above threshold. An empty table is unchanged.
func DropHighMissing(t *fetcher.Table, threshold float64) {
	if t.Len() == 0 || len(t.Columns) == 0 {
		return
	}

	var drop []string
	for j, c := range t.Columns {
		n := 0
		for _, row := range t.Rows {
			if missing(row[j]) {
				n++
			}
		}
		if float64(n)/float64(t.Len()) >= threshold {
			drop = append(drop, c)
		}
	}
	t.Drop(drop...)

	width := len(t.Columns)
	if width == 0 {
		t.Rows = nil
		return
	}
	t.Filter(func(i int) bool {
		n := 0
		for _, v := range t.Rows[i] {
			if missing(v) {
				n++
			}
		}
		return float64(n)/float64(width) < threshold
	})
}

// dropMissing removes rows missing a value in any of the named columns.
func dropMissing(t *fetcher.Table, columns ...string) {
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		if j := t.Index(c); j >= 0 {
			idx = append(idx, j)
		}
	}
	t.Filter(func(i int) bool {
		for _, j := range idx {
			if missing(t.Rows[i][j]) {
				return false
			}
		}
		return true
	})
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
}

// isoDate normalizes a date cell to YYYY-MM-DD. Month-only reference periods
// such as "2023-04" become the first of the month. Unparseable values are
// returned as "".
func isoDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return ""
}

// number normalizes a numeric cell. Values that do not parse become "".
func number(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// zeroPad left-pads an integer cell to width digits. Whole floats such as
// "3.0" are treated as integers.
func zeroPad(v string, width int) string {
	v = strings.TrimSpace(v)
	if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) {
		v = strconv.FormatInt(int64(f), 10)
	}
	if len(v) >= width {
		return v
	}
	return strings.Repeat("0", width-len(v)) + v
}

// concat stacks tables vertically. The result's columns are the union of the
// inputs' columns in first-seen order; cells absent from an input are "".
func concat(tables ...*fetcher.Table) *fetcher.Table {
	var columns []string
	for _, t := range tables {
		for _, c := range t.Columns {
			if !slices.Contains(columns, c) {
				columns = append(columns, c)
			}
		}
	}

	out := fetcher.NewTable(columns)
	for _, t := range tables {
		idx := make([]int, len(t.Columns))
		for j, c := range t.Columns {
			idx[j] = out.Index(c)
		}
		for _, row := range t.Rows {
			r := make([]string, len(columns))
			for j, v := range row {
				r[idx[j]] = v
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// readYears reads dir/<prefix><year>.csv for every year in [from, to] and
// stacks the results. A missing year is an error.
func readYears(ctx context.Context, env *Env, dir, prefix string, from, to int) (*fetcher.Table, error) {
	tables := make([]*fetcher.Table, 0, to-from+1)
	for year := from; year <= to; year++ {
		t, err := fetcher.ReadTable(ctx, env.raw(dir, fmt.Sprintf("%s%d.csv", prefix, year)), fetcher.ReadOptions{})
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return concat(tables...), nil
}

// requireColumns fails with the dataset name when t lacks any named column.
func requireColumns(name string, t *fetcher.Table, columns ...string) error {
	for _, c := range columns {
		if t.Index(c) < 0 {
			return eris.Errorf("%s: input has no %q column", name, c)
		}
	}
	return nil
}
