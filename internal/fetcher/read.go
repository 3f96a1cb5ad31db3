package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// Supported table formats.
const (
	FormatCSV       = "csv"
	FormatCSVGzip   = "csv.gz"
	FormatXLSX      = "xlsx"
	FormatParquet   = "parquet"
	FormatShapefile = "shp"
)

// ReadOptions selects how ReadTable parses a file.
type ReadOptions struct {
	// Format overrides detection from the file extension.
	Format    string
	Sheet     string // xlsx worksheet name
	Encoding  string // csv charset
	Delimiter rune
}

// DetectFormat returns the table format implied by path's extension.
func DetectFormat(path string) string {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".csv.gz") {
		return FormatCSVGzip
	}
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// ReadTable reads a whole tabular file. Unsupported formats return a
// model.ConfigurationError.
func ReadTable(ctx context.Context, path string, opts ReadOptions) (*Table, error) {
	format := opts.Format
	if format == "" {
		format = DetectFormat(path)
	}

	switch format {
	case FormatCSV, FormatCSVGzip:
		return readCSVFile(ctx, path, format == FormatCSVGzip, opts)
	case FormatXLSX:
		return ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
	case FormatParquet:
		return ReadParquet(path)
	case FormatShapefile:
		return ReadShapefile(path)
	case "xls":
		return nil, model.NewConfigurationError(path, "legacy .xls workbooks are not supported; save the file as .xlsx")
	default:
		return nil, model.NewConfigurationError(path, "unsupported table format %q", format)
	}
}

func readCSVFile(ctx context.Context, path string, gzipped bool, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, eris.Wrapf(err, "read: gzip header %s", path)
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	}

	t, err := ReadCSV(ctx, r, CSVOptions{
		Delimiter:  opts.Delimiter,
		Encoding:   opts.Encoding,
		LazyQuotes: true,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "read: %s", path)
	}
	return t, nil
}
