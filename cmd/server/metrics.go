package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsServer exposes the supervisor's registry on /metrics.
type metricsServer struct {
	srv    *http.Server
	logger *slog.Logger
}

func newMetricsServer(addr string, registry *prometheus.Registry, logger *slog.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &metricsServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (m *metricsServer) Serve() error {
	m.logger.Info("metrics listening", "address", m.srv.Addr)
	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *metricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
