package main

import (
	"context"
	"errors"

	"go-chi-accumulator/internal/calculator"
	"go-chi-accumulator/internal/config"
	"go-chi-accumulator/internal/observability"
)

type shutdownFunc func(context.Context) error

// initTelemetry starts the OTLP trace, metric and log pipelines when enabled,
// then registers the calculator's metric instruments. With telemetry off the
// instruments bind to the global no-op meter provider.
func initTelemetry(ctx context.Context, cfg *config.Config) (shutdownFunc, error) {
	var shutdowns []shutdownFunc

	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	if cfg.TelemetryEnabled {
		for _, start := range []func(context.Context, string) (func(context.Context) error, error){
			observability.InitTracing,
			observability.InitMetrics,
			observability.InitLogging,
		} {
			stop, err := start(ctx, cfg.ServiceName)
			if err != nil {
				return nil, errors.Join(err, shutdown(ctx))
			}
			shutdowns = append(shutdowns, stop)
		}
	}

	if err := calculator.InitMetrics(); err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}

	return shutdown, nil
}
