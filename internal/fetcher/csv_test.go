package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    CSVOptions
		columns []string
		rows    [][]string
	}{
		{
			name:    "plain",
			input:   "StoreName,City\nLeaf Co,Regina\nPrairie Buds,Saskatoon\n",
			columns: []string{"StoreName", "City"},
			rows:    [][]string{{"Leaf Co", "Regina"}, {"Prairie Buds", "Saskatoon"}},
		},
		{
			name:    "semicolon delimiter",
			input:   "REF_DATE;VALUE\n2023-01;150\n",
			opts:    CSVOptions{Delimiter: ';'},
			columns: []string{"REF_DATE", "VALUE"},
			rows:    [][]string{{"2023-01", "150"}},
		},
		{
			name:    "bom and padded header",
			input:   "\ufeffStoreName , City\nLeaf Co,Regina\n",
			columns: []string{"StoreName", "City"},
			rows:    [][]string{{"Leaf Co", "Regina"}},
		},
		{
			name:    "short row padded",
			input:   "StoreName,City,Address\nShort\n",
			columns: []string{"StoreName", "City", "Address"},
			rows:    [][]string{{"Short", "", ""}},
		},
		{
			name:    "trim space",
			input:   "a,b\n 1 , 2 \n",
			opts:    CSVOptions{TrimSpace: true},
			columns: []string{"a", "b"},
			rows:    [][]string{{"1", "2"}},
		},
		{
			name:    "lazy quotes",
			input:   "name,city\nThe \"Green\" Room,Halifax\n",
			opts:    CSVOptions{LazyQuotes: true},
			columns: []string{"name", "city"},
			rows:    [][]string{{`The "Green" Room`, "Halifax"}},
		},
		{
			name:    "windows-1252",
			input:   "name\nCaf\xe9 Vert\n",
			opts:    CSVOptions{Encoding: "windows-1252"},
			columns: []string{"name"},
			rows:    [][]string{{"Café Vert"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := ReadCSV(context.Background(), strings.NewReader(tt.input), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, tbl.Columns)
			assert.Equal(t, tt.rows, tbl.Rows)
		})
	}
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header")

	_, err = ReadCSV(context.Background(), strings.NewReader("a\n1\n"), CSVOptions{Encoding: "klingon-9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")

	_, err = ReadCSV(context.Background(), strings.NewReader("a,b\n\"unterminated\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: read row")
}

func TestReadCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadCSV(ctx, strings.NewReader("a\n1\n"), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestStreamCSV_HeaderFirst(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id\n")
	for range 500 {
		sb.WriteString("x\n")
	}

	rows, errc := StreamCSV(context.Background(), strings.NewReader(sb.String()), CSVOptions{})
	var got [][]string
	for row := range rows {
		got = append(got, row)
	}
	require.NoError(t, <-errc)
	require.Len(t, got, 501)
	assert.Equal(t, []string{"id"}, got[0])
}

func TestStreamCSV_StopsWhenCancelled(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rows, errc := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	n := 0
	for range rows {
		n++
		if n == 5 {
			cancel()
		}
	}

	err := <-errc
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
	assert.Less(t, n, 10000)
}
