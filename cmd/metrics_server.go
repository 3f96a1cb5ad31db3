package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func newMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type metricsServer struct {
	srv  *http.Server
	done chan struct{}
}

// startMetricsServer serves /metrics and /healthz on addr until Shutdown.
func startMetricsServer(addr string) *metricsServer {
	ms := &metricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           newMetricsRouter(),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		done: make(chan struct{}),
	}

	go func() {
		defer close(ms.done)
		zap.L().Info("metrics endpoint listening", zap.String("addr", addr))
		if err := ms.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("metrics server", zap.Error(err))
		}
	}()

	return ms
}

// Shutdown stops accepting requests and waits for the listener to exit.
func (ms *metricsServer) Shutdown(ctx context.Context) error {
	err := ms.srv.Shutdown(ctx)
	select {
	case <-ms.done:
	case <-ctx.Done():
	}
	return err
}
