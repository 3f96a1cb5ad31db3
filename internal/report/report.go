// Package report writes the dataset shape report summarizing every output
// table and the run that produced them.
package report

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/model"
)

// FileName is the report's name inside the output directory.
const FileName = "dataset_shape_report.txt"

const (
	ruleWidth = 80
	pathWidth = 50
	title     = "DATASET ROWS x COLUMNS REPORT"
)

// Shape is the size of one output table.
type Shape struct {
	Path string // relative to the scanned directory
	Rows int
	Cols int
	Err  error
}

// RunSummary is appended to the report when present.
type RunSummary struct {
	RunID          string
	Stores         model.EnrichmentSummary
	SkippedSources []string
	DatasetsBuilt  int
	DatasetsFailed int
	Elapsed        time.Duration
}

// Scan reads every .csv and .parquet file below dir, in lexical order. A file
// that cannot be read is reported with its error rather than failing the scan.
func Scan(ctx context.Context, dir string) ([]Shape, error) {
	var shapes []Shape
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".csv" && ext != ".parquet" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		s := Shape{Path: rel}
		t, err := fetcher.ReadTable(ctx, path, fetcher.ReadOptions{})
		if err != nil {
			zap.L().Warn("report: cannot read output", zap.String("file", rel), zap.Error(err))
			s.Err = err
		} else {
			s.Rows, s.Cols = t.Len(), len(t.Columns)
		}
		shapes = append(shapes, s)
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "report: scan %s", dir)
	}
	return shapes, nil
}

// Render formats the report text.
func Render(shapes []Shape, generated time.Time, summary *RunSummary) string {
	rule := strings.Repeat("=", ruleWidth)
	lines := []string{rule, title, rule, ""}

	for _, s := range shapes {
		name := s.Path
		if n := len(name); n < pathWidth {
			name += strings.Repeat(".", pathWidth-n)
		}
		if s.Err != nil {
			lines = append(lines, name+"ERROR reading file")
			continue
		}
		lines = append(lines, name+fmt.Sprintf("%8d rows x %3d cols", s.Rows, s.Cols))
	}

	lines = append(lines, "", rule, "Report generated: "+generated.Format("2006-01-02 15:04:05.000000"), rule)

	if summary != nil {
		lines = append(lines, "", "RUN SUMMARY")
		if summary.RunID != "" {
			lines = append(lines, "Run ID:               "+summary.RunID)
		}
		st := summary.Stores
		lines = append(lines,
			fmt.Sprintf("Store records:        %d", st.Total),
			fmt.Sprintf("  resolved:           %d", st.Resolved),
			fmt.Sprintf("  unresolved:         %d", st.Unresolved),
			fmt.Sprintf("  failed:             %d", st.Failed),
			fmt.Sprintf("  already located:    %d", st.AlreadyLocated),
			fmt.Sprintf("  reprojected:        %d", st.Reprojected),
			fmt.Sprintf("  reproject failed:   %d", st.ReprojectFailed),
			fmt.Sprintf("  postal backfilled:  %d", st.PostalBackfilled),
			fmt.Sprintf("Datasets built:       %d", summary.DatasetsBuilt),
			fmt.Sprintf("Datasets failed:      %d", summary.DatasetsFailed),
		)
		if len(summary.SkippedSources) > 0 {
			lines = append(lines, "Skipped sources:      "+strings.Join(summary.SkippedSources, ", "))
		}
		if summary.Elapsed > 0 {
			lines = append(lines, fmt.Sprintf("Elapsed:              %.2fs", summary.Elapsed.Seconds()))
		}
		lines = append(lines, rule)
	}

	return strings.Join(lines, "\n") + "\n"
}

// Write scans dir and writes the report into it. It returns the report path.
func Write(ctx context.Context, dir string, clock clockwork.Clock, summary *RunSummary) (string, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", dir)
	}

	shapes, err := Scan(ctx, dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName)
	text := Render(shapes, clock.Now(), summary)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", eris.Wrapf(err, "report: write %s", path)
	}

	zap.L().Info("report written", zap.String("path", path), zap.Int("files", len(shapes)))
	return path, nil
}
