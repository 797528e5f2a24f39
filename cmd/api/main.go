package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"go-chi-accumulator/internal/calculator"
	"go-chi-accumulator/internal/config"
	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/server"
	"go-chi-accumulator/internal/session"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Logger
	if err := observability.InitLogger(cfg.Level()); err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	// Tracing, metrics, log export
	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer telemetryShutdown(context.Background())

	// Sessions
	store := session.NewStore(cfg.SessionIdleTTL)
	defer store.Close()

	if err := calculator.RegisterCollectors(prometheus.DefaultRegisterer, store); err != nil {
		panic(err)
	}

	if cfg.SessionIdleTTL > 0 {
		go calculator.SweepSessions(ctx, store, sweepInterval(cfg.SessionIdleTTL))
	}

	// Router
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started", zap.String("addr", cfg.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	waitForShutdown(srv, cfg.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, timeout time.Duration) {

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("shutdown failed", zap.Error(err))
		return
	}

	observability.Logger.Info("server stopped")
}

// sweepInterval checks for idle sessions a few times per TTL, at most once a second.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}
