package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/sink"
	"github.com/sells-group/cannabis-pipeline/pkg/geocode"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()
	return &Env{
		RawDir:    filepath.Join(root, "raw"),
		OutputDir: filepath.Join(root, "out"),
	}
}

func writeRaw(t *testing.T, env *Env, rel, content string) {
	t.Helper()
	path := filepath.Join(env.RawDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeRawTable(t *testing.T, env *Env, rel string, columns []string, rows ...[]string) {
	t.Helper()
	tbl := fetcher.NewTable(columns)
	for _, r := range rows {
		tbl.Append(r)
	}
	_, err := sink.WriteTable(context.Background(), filepath.Join(env.RawDir, rel), tbl)
	require.NoError(t, err)
}

func column(t *testing.T, tbl *fetcher.Table, name string) []string {
	t.Helper()
	j := tbl.Index(name)
	require.GreaterOrEqual(t, j, 0, "column %q", name)
	out := make([]string, tbl.Len())
	for i, row := range tbl.Rows {
		out[i] = row[j]
	}
	return out
}

func outputByFile(t *testing.T, outs []Output, file string) *fetcher.Table {
	t.Helper()
	for _, o := range outs {
		if o.File == file {
			return o.Table
		}
	}
	require.Failf(t, "output not found", "%s", file)
	return nil
}

// mapGeocoder resolves queries from a fixed table and counts lookups.
type mapGeocoder struct {
	mu      sync.Mutex
	points  map[string][2]float64
	queries map[string]int
}

func newMapGeocoder(points map[string][2]float64) *mapGeocoder {
	return &mapGeocoder{points: points, queries: make(map[string]int)}
}

func (g *mapGeocoder) Forward(_ context.Context, query string) geocode.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries[query]++
	p, ok := g.points[query]
	if !ok {
		return geocode.Result{Status: geocode.StatusUnresolved}
	}
	lat, lng := p[0], p[1]
	return geocode.Result{Latitude: &lat, Longitude: &lng, Status: geocode.StatusResolved}
}

func (g *mapGeocoder) Reverse(_ context.Context, _, _ float64) geocode.Result {
	return geocode.Result{Status: geocode.StatusUnresolved}
}
