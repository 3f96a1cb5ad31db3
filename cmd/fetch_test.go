package main

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/cannabis-pipeline/internal/config"
	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
	"github.com/sells-group/cannabis-pipeline/internal/resilience"
)

func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testRouter() fetcher.Router {
	return fetcher.Router{
		HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent: "test-agent",
			Timeout:   5 * time.Second,
			HostRate:  rate.Inf,
			Retry:     resilience.RetryConfig{MaxAttempts: 1},
		}),
	}
}

func TestFetchSources(t *testing.T) {
	archive := zipArchive(t, map[string]string{"Toronto/calls_for_service.csv": "a,b\n1,2\n"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sales.csv":
			_, _ = w.Write([]byte("REF_DATE,VALUE\n2023-01,1\n"))
		case "/toronto.zip":
			_, _ = w.Write(archive)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rawDir := t.TempDir()
	sources := []config.FetchSource{
		{URL: srv.URL + "/sales.csv", Path: "02_cannabis_sales/cannabis_sales.csv"},
		{URL: srv.URL + "/toronto.zip", Path: "05_crime_by_city_data/toronto.zip", Extract: true},
	}

	require.NoError(t, fetchSources(context.Background(), testRouter(), rawDir, sources, 2))

	data, err := os.ReadFile(filepath.Join(rawDir, "02_cannabis_sales", "cannabis_sales.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "REF_DATE")

	data, err = os.ReadFile(filepath.Join(rawDir, "05_crime_by_city_data", "Toronto", "calls_for_service.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestFetchSources_CountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.csv" {
			_, _ = w.Write([]byte("x\n1\n"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rawDir := t.TempDir()
	sources := []config.FetchSource{
		{URL: srv.URL + "/ok.csv", Path: "ok.csv"},
		{URL: srv.URL + "/gone.csv", Path: "gone.csv"},
		{URL: "s3://bucket/key.csv", Path: "s3.csv"},
	}

	err := fetchSources(context.Background(), testRouter(), rawDir, sources, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 downloads failed")

	_, statErr := os.Stat(filepath.Join(rawDir, "ok.csv"))
	assert.NoError(t, statErr)
}

func TestFetchSources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fetchSources(ctx, testRouter(), t.TempDir(), []config.FetchSource{
		{URL: "http://127.0.0.1:1/never.csv", Path: "never.csv"},
	}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}
