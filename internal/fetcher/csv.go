package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
	TrimSpace  bool
	Encoding   string // source charset, e.g. "windows-1252"; empty means UTF-8
}

// decodeReader wraps r so it yields UTF-8 for the named charset.
func decodeReader(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported encoding %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}

// StreamCSV parses r on its own goroutine and sends every record, header
// included, on the returned row channel. The error channel carries at most one
// error. Both channels are closed once parsing stops, and the caller must
// drain the row channel.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rows := make(chan []string, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(rows)
		if err := parseCSV(ctx, r, opts, rows); err != nil {
			errc <- err
		}
	}()

	return rows, errc
}

func parseCSV(ctx context.Context, r io.Reader, opts CSVOptions, out chan<- []string) error {
	src, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return err
	}

	cr := csv.NewReader(src)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.LazyQuotes = opts.LazyQuotes
	// Registry exports are ragged; Table.Append pads short rows.
	cr.FieldsPerRecord = -1

	for {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "csv: context cancelled")
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "csv: context cancelled")
		}
	}
}

// ReadCSV reads a whole CSV stream whose first row is the header.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*Table, error) {
	rows, errc := StreamCSV(ctx, r, opts)

	var t *Table
	for row := range rows {
		if t == nil {
			t = NewTable(cleanHeader(row))
			continue
		}
		t.Append(row)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	if t == nil {
		return nil, eris.New("csv: no header row")
	}
	return t, nil
}
