// Package sink writes processed tables and store records to files and
// databases.
package sink

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// WriteTable writes t to path in the format implied by its extension,
// creating parent directories as needed. It returns the number of data rows
// written.
func WriteTable(ctx context.Context, path string, t *fetcher.Table) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, eris.Wrap(err, "sink: write cancelled")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrapf(err, "sink: create directory for %s", path)
	}

	var err error
	switch format := fetcher.DetectFormat(path); format {
	case fetcher.FormatCSV:
		err = writeCSVFile(path, t, false)
	case fetcher.FormatCSVGzip:
		err = writeCSVFile(path, t, true)
	case fetcher.FormatParquet:
		err = writeParquetFile(path, t)
	case fetcher.FormatXLSX:
		err = writeXLSXFile(path, t)
	default:
		return 0, model.NewConfigurationError(path, "unsupported output format %q", format)
	}
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

// StoresTable lays out store records in model.OutputColumns order. Missing
// coordinates and postal codes are written as empty cells.
func StoresTable(stores []model.StoreLocation) *fetcher.Table {
	t := fetcher.NewTable(model.OutputColumns)
	for i := range stores {
		s := &stores[i]
		t.Append([]string{
			s.StoreName,
			s.City,
			string(s.Province),
			s.FullProvinceName,
			s.Address,
			s.PostalCode,
			formatCoord(s.Latitude),
			formatCoord(s.Longitude),
		})
	}
	return t
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
