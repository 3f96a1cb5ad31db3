package sink

import (
	"os"
	"sort"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

const parquetBatchSize = 1024

// writeParquetFile writes every column as an optional string. Empty cells are
// stored as nulls. Parquet groups order their leaves by name, so the file's
// column order is alphabetical.
func writeParquetFile(path string, t *fetcher.Table) (err error) {
	group := make(parquet.Group, len(t.Columns))
	for _, c := range t.Columns {
		group[c] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("table", group)

	leaf := make(map[string]int, len(t.Columns))
	for i, p := range schema.Columns() {
		leaf[p[0]] = i
	}
	order := make([]int, len(t.Columns))
	for j := range order {
		order[j] = j
	}
	sort.Slice(order, func(a, b int) bool {
		return leaf[t.Columns[order[a]]] < leaf[t.Columns[order[b]]]
	})

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "parquet: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "parquet: close %s", path)
		}
	}()

	w := parquet.NewWriter(f, schema)
	batch := make([]parquet.Row, 0, parquetBatchSize)
	for _, cells := range t.Rows {
		row := make(parquet.Row, 0, len(order))
		for _, j := range order {
			col := leaf[t.Columns[j]]
			if cells[j] == "" {
				row = append(row, parquet.NullValue().Level(0, 0, col))
				continue
			}
			row = append(row, parquet.ValueOf(cells[j]).Level(0, 1, col))
		}
		batch = append(batch, row)
		if len(batch) == parquetBatchSize {
			if _, err := w.WriteRows(batch); err != nil {
				return eris.Wrap(err, "parquet: write rows")
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if _, err := w.WriteRows(batch); err != nil {
			return eris.Wrap(err, "parquet: write rows")
		}
	}
	return eris.Wrap(w.Close(), "parquet: close writer")
}
