package calculator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/session"
)

// Metric instruments, initialized once via InitMetrics().
var (
	opsCounter     metric.Int64Counter
	opsHistogram   metric.Float64Histogram
	errorCounter   metric.Int64Counter
	resultGauge    metric.Float64Gauge
	tokensCounter  metric.Int64Counter
	sessionsActive metric.Int64UpDownCounter
)

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	meter := otel.Meter("calculator")

	var err error

	opsCounter, err = meter.Int64Counter("calculator.operations.total",
		metric.WithDescription("Total number of calculator operations performed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return fmt.Errorf("creating ops counter: %w", err)
	}

	opsHistogram, err = meter.Float64Histogram("calculator.operation.duration",
		metric.WithDescription("Duration of calculator operations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating ops histogram: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The result of the last calculator operation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	tokensCounter, err = meter.Int64Counter("calculator.tokens.total",
		metric.WithDescription("Total number of input tokens submitted to sessions"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return fmt.Errorf("creating tokens counter: %w", err)
	}

	sessionsActive, err = meter.Int64UpDownCounter("calculator.sessions.active",
		metric.WithDescription("Number of open calculator sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return fmt.Errorf("creating sessions counter: %w", err)
	}

	return nil
}

// RegisterCollectors exposes the live session count on the Prometheus
// registry served at /metrics.
func RegisterCollectors(reg prometheus.Registerer, store *session.Store) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "calculator",
		Name:      "sessions_open",
		Help:      "Number of calculator sessions currently held in memory.",
	}, func() float64 {
		return float64(store.Len())
	})

	if err := observability.RegisterCollector(reg, gauge); err != nil {
		return fmt.Errorf("registering session gauge: %w", err)
	}

	return nil
}
