package calculator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/session"
)

// SweepSessions closes idle sessions every interval until ctx is done.
func SweepSessions(ctx context.Context, store *session.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sweepOnce(ctx, store, now)
		}
	}
}

func sweepOnce(ctx context.Context, store *session.Store, now time.Time) int {
	n := store.Sweep(now)
	if n == 0 {
		return 0
	}

	sessionsActive.Add(ctx, int64(-n))
	observability.Logger.Info("idle sessions closed",
		zap.Int("count", n),
		zap.Int("remaining", store.Len()),
	)

	return n
}
