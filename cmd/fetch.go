package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/cannabis-pipeline/internal/config"
	"github.com/sells-group/cannabis-pipeline/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download raw source files",
	Long:  "Downloads every file listed under fetch.sources into the raw data directory, unpacking ZIP archives when asked.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		if len(cfg.Fetch.Sources) == 0 {
			zap.L().Warn("no fetch sources configured")
			return nil
		}

		parallel, _ := cmd.Flags().GetInt("parallel")
		router := fetcher.Router{
			HTTP: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent: cfg.Fetch.UserAgent,
				Timeout:   cfg.Fetch.Timeout,
				HostRate:  rate.Limit(cfg.Fetch.HostRate),
			}),
			FTP: fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: cfg.Fetch.Timeout}),
		}

		return fetchSources(ctx, router, cfg.Paths.RawDir, cfg.Fetch.Sources, parallel)
	},
}

func init() {
	fetchCmd.Flags().Int("parallel", 4, "max concurrent downloads")
	rootCmd.AddCommand(fetchCmd)
}

// fetchSources downloads every source below rawDir. One failed download does
// not stop the others; the returned error counts the failures.
func fetchSources(ctx context.Context, router fetcher.Router, rawDir string, sources []config.FetchSource, parallel int) error {
	log := zap.L().With(zap.String("command", "fetch"))

	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	var (
		mu     sync.Mutex
		failed int
	)
	for _, src := range sources {
		g.Go(func() error {
			if err := fetchSource(gctx, router, rawDir, src); err != nil {
				log.Error("download failed", zap.String("url", src.URL), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "fetch: cancelled")
	}
	if failed > 0 {
		return eris.Errorf("fetch: %d of %d downloads failed", failed, len(sources))
	}
	log.Info("downloads complete", zap.Int("files", len(sources)))
	return nil
}

func fetchSource(ctx context.Context, router fetcher.Router, rawDir string, src config.FetchSource) error {
	f, err := router.For(src.URL)
	if err != nil {
		return err
	}

	path := filepath.Join(rawDir, src.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "fetch: create directory")
	}
	n, err := f.DownloadToFile(ctx, src.URL, path)
	if err != nil {
		return err
	}
	zap.L().Info("downloaded", zap.String("path", path), zap.Int64("bytes", n))

	if !src.Extract {
		return nil
	}
	files, err := fetcher.ExtractZIP(path, filepath.Dir(path))
	if err != nil {
		return err
	}
	zap.L().Info("extracted", zap.String("archive", path), zap.Int("files", len(files)))
	return nil
}
