// Command speechbench runs the speech benchmark service: the HTTP command
// surface, the run execution engine and a Prometheus metrics listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AltairaLabs/speechbench/aggregate"
	"github.com/AltairaLabs/speechbench/artifact"
	"github.com/AltairaLabs/speechbench/config"
	"github.com/AltairaLabs/speechbench/engine"
	"github.com/AltairaLabs/speechbench/httpapi"
	"github.com/AltairaLabs/speechbench/logger"
	prom "github.com/AltairaLabs/speechbench/metrics/prometheus"
	"github.com/AltairaLabs/speechbench/repository"
	"github.com/AltairaLabs/speechbench/scripts"
	"github.com/AltairaLabs/speechbench/telemetry"
	"github.com/AltairaLabs/speechbench/vendors"
	"github.com/AltairaLabs/speechbench/version"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Info("starting speechbench", "version", version.GetVersion())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, "speechbench")
		if err != nil {
			return err
		}
		telemetry.Setup(tp)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer provider shutdown failed", "error", err)
			}
		}()
	} else {
		telemetry.Setup(nil)
	}

	store, err := repository.NewStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("repository close failed", "error", err)
		}
	}()

	if err := scripts.SeedDefaults(ctx, store); err != nil {
		return err
	}
	if err := store.SeedSubjectiveMetrics(ctx); err != nil {
		return err
	}

	artifacts, err := artifact.NewStore(cfg.StorageDir)
	if err != nil {
		return err
	}

	registry, err := vendors.Build(ctx, cfg.Credentials)
	if err != nil {
		return err
	}

	eng := engine.New(registry, store, artifacts, engine.Options{
		Concurrency:     cfg.Concurrency,
		SynthVendor:     cfg.SynthVendor,
		EvaluatorVendor: cfg.EvaluatorVendor,
	})
	agg := aggregate.New(store, cfg.LookbackDays)
	api := httpapi.New(eng, store, artifacts, agg)

	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	exporter := prom.NewExporter(cfg.MetricsAddr)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("api listening", "addr", cfg.ListenAddr)
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := exporter.Start(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown failed", "error", err)
	}
	if err := exporter.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown failed", "error", err)
	}
	return nil
}
