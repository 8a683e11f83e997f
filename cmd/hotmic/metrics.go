package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/algo-hotmic/host/engine"
	"github.com/cwbudde/algo-hotmic/host/telemetry"
)

const (
	metricsPath     = "/metrics"
	shutdownTimeout = 5 * time.Second
)

// serveMetrics exposes the meters of e on addr until the returned stop
// function is called.
func serveMetrics(ctx context.Context, addr string, e *engine.Engine, interval time.Duration, log *slog.Logger) (func() error, error) {
	poller, err := telemetry.NewPoller(e.Bank(), interval, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(telemetry.NewCollector(e.Bank(), poller, prometheus.Labels{"engine": e.ID().String()})); err != nil {
		return nil, fmt.Errorf("registering meters: %w", err)
	}

	reg.MustRegister(collectors.NewGoCollector())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		_ = poller.Run(ctx)
	}()

	go func() {
		defer wg.Done()

		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	log.Info("serving metrics", slog.String("addr", ln.Addr().String()), slog.String("path", metricsPath))

	return func() error {
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()

		err := srv.Shutdown(shutdownCtx)
		wg.Wait()

		return err
	}, nil
}
