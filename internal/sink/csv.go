package sink

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

func writeCSVFile(path string, t *fetcher.Table, gzipped bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "csv: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "csv: close %s", path)
		}
	}()

	if !gzipped {
		return writeCSV(f, t)
	}

	gz := gzip.NewWriter(f)
	if err := writeCSV(gz, t); err != nil {
		_ = gz.Close()
		return err
	}
	return eris.Wrap(gz.Close(), "csv: flush gzip")
}

func writeCSV(w io.Writer, t *fetcher.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "csv: write rows")
	}
	return nil
}
