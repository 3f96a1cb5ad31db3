package fetcher

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a rectangular string table: every row has len(Columns) cells.
// Missing values are "".
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns an empty table with the given header.
func NewTable(columns []string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	return slices.Index(t.Columns, name)
}

// Has reports whether every named column exists.
func (t *Table) Has(names ...string) bool {
	for _, n := range names {
		if t.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row []string) {
	out := make([]string, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

// Value returns the cell at row i in column name, or "" if the column is absent.
func (t *Table) Value(i int, name string) string {
	j := t.Index(name)
	if j < 0 {
		return ""
	}
	return t.Rows[i][j]
}

// Set writes the cell at row i in column name. The column must exist.
func (t *Table) Set(i int, name, value string) {
	if j := t.Index(name); j >= 0 {
		t.Rows[i][j] = value
	}
}

// Records returns each row as a column-name to value map.
func (t *Table) Records() []map[string]string {
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// Select returns a new table holding only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j := t.Index(n)
		if j < 0 {
			return nil, eris.Errorf("table: column %q not found", n)
		}
		idx[k] = j
	}
	out := &Table{Columns: slices.Clone(names), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		r := make([]string, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		out.Rows[i] = r
	}
	return out, nil
}

// Filter keeps the rows for which keep returns true. keep receives the row's
// index before filtering.
func (t *Table) Filter(keep func(i int) bool) {
	rows := make([][]string, 0, len(t.Rows))
	for i, row := range t.Rows {
		if keep(i) {
			rows = append(rows, row)
		}
	}
	t.Rows = rows
}

// Rename renames columns in place. Unknown names are ignored.
func (t *Table) Rename(names map[string]string) {
	for i, c := range t.Columns {
		if n, ok := names[c]; ok {
			t.Columns[i] = n
		}
	}
}

// AddColumn appends a column whose values come from fn, or replaces it if
// it already exists.
func (t *Table) AddColumn(name string, fn func(i int) string) {
	j := t.Index(name)
	if j < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], fn(i))
		}
		return
	}
	for i := range t.Rows {
		t.Rows[i][j] = fn(i)
	}
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) {
	keep := make([]int, 0, len(t.Columns))
	for j, c := range t.Columns {
		if !slices.Contains(names, c) {
			keep = append(keep, j)
		}
	}
	if len(keep) == len(t.Columns) {
		return
	}
	cols := make([]string, len(keep))
	for k, j := range keep {
		cols[k] = t.Columns[j]
	}
	for i, row := range t.Rows {
		r := make([]string, len(keep))
		for k, j := range keep {
			r[k] = row[j]
		}
		t.Rows[i] = r
	}
	t.Columns = cols
}

// cleanHeader trims header names and strips a UTF-8 byte order mark.
func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}
