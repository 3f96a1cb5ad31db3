package fetcher

import (
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

// ReadParquet reads every row of a flat parquet file. Leaf column paths are
// joined with "." to form column names; nested repeated values keep the
// first element.
func ReadParquet(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "parquet: open file")
	}
	defer f.Close() //nolint:errcheck

	st, err := f.Stat()
	if err != nil {
		return nil, eris.Wrap(err, "parquet: stat file")
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, eris.Wrap(err, "parquet: read footer")
	}

	leaves := pf.Schema().Columns()
	columns := make([]string, len(leaves))
	for i, p := range leaves {
		columns[i] = strings.Join(p, ".")
	}
	t := NewTable(columns)

	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				t.Append(rowValues(row, len(columns)))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, eris.Wrap(err, "parquet: read rows")
			}
			if n == 0 {
				break
			}
		}
		if err := rows.Close(); err != nil {
			return nil, eris.Wrap(err, "parquet: close row group")
		}
	}
	return t, nil
}

func rowValues(row parquet.Row, width int) []string {
	out := make([]string, width)
	seen := make([]bool, width)
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= width || seen[c] {
			continue
		}
		seen[c] = true
		out[c] = valueString(v)
	}
	return out
}

func valueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
