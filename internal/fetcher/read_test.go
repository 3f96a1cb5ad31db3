package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("Ontario.csv"))
	assert.Equal(t, FormatCSVGzip, DetectFormat("/data/crime.CSV.GZ"))
	assert.Equal(t, FormatXLSX, DetectFormat("Alberta.xlsx"))
	assert.Equal(t, FormatShapefile, DetectFormat("crime/points.shp"))
	assert.Equal(t, "", DetectFormat("README"))
}

func TestReadTable_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ontario.csv")
	require.NoError(t, os.WriteFile(path, []byte("StoreName;City\nLeaf;Ottawa\n"), 0o644))

	tbl, err := ReadTable(context.Background(), path, ReadOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, "Ottawa", tbl.Value(0, "City"))
}

func TestReadTable_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("REF_DATE,VALUE\n2019-01,100\n2019-02,120\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	tbl, err := ReadTable(context.Background(), path, ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "120", tbl.Value(1, "VALUE"))
}

func TestReadTable_FormatOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0o644))

	tbl, err := ReadTable(context.Background(), path, ReadOptions{Format: FormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "1", tbl.Value(0, "a"))
}

func TestReadTable_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Stores": {{"StoreName"}, {"Leaf"}},
	})

	tbl, err := ReadTable(context.Background(), path, ReadOptions{Sheet: "Stores"})
	require.NoError(t, err)
	assert.Equal(t, "Leaf", tbl.Value(0, "StoreName"))
}

func TestReadTable_LegacyXLS(t *testing.T) {
	_, err := ReadTable(context.Background(), "Alberta.xls", ReadOptions{})
	require.Error(t, err)
	assert.True(t, model.IsConfigurationError(err))
	assert.Contains(t, err.Error(), ".xlsx")
}

func TestReadTable_UnknownFormat(t *testing.T) {
	_, err := ReadTable(context.Background(), "stores.json", ReadOptions{})
	require.Error(t, err)
	assert.True(t, model.IsConfigurationError(err))
}

func TestReadTable_MissingFile(t *testing.T) {
	_, err := ReadTable(context.Background(), filepath.Join(t.TempDir(), "none.csv"), ReadOptions{})
	require.Error(t, err)
	assert.False(t, model.IsConfigurationError(err))
}
