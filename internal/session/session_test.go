package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"go-chi-accumulator/internal/accumulator"
)

func TestControllerSubmitReturnsSnapshot(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx := context.Background()
	for _, tok := range []string{"7", "+"} {
		_, err := c.Submit(ctx, tok)
		require.NoError(t, err)
	}

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "0", snap.Display)
	require.Equal(t, "7 +", snap.Pending)

	for _, tok := range []string{"3", "="} {
		snap, err = c.Submit(ctx, tok)
		require.NoError(t, err)
	}

	require.Equal(t, Snapshot{
		ID:      "s1",
		Display: "10",
		History: []string{"7 + 3 = 10"},
		Computed: &accumulator.HistoryEntry{
			Left:     7,
			Operator: accumulator.Add,
			Right:    3,
			Result:   10,
		},
	}, snap)

	snap, err = c.Submit(ctx, "=")
	require.NoError(t, err)
	require.Nil(t, snap.Computed)
}

func TestControllerDivisionByZeroKeepsSnapshot(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx := context.Background()
	for _, tok := range []string{"5", "/", "0"} {
		_, err := c.Submit(ctx, tok)
		require.NoError(t, err)
	}

	before, err := c.Snapshot(ctx)
	require.NoError(t, err)

	after, err := c.Submit(ctx, "=")
	require.ErrorIs(t, err, accumulator.ErrDivisionByZero)
	require.Equal(t, before, after)
}

func TestControllerReplay(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx := context.Background()
	for _, tok := range []string{"2", "+", "2", "=", "ac"} {
		_, err := c.Submit(ctx, tok)
		require.NoError(t, err)
	}

	snap, err := c.Replay(ctx, "2 + 2 = 4")
	require.NoError(t, err)
	require.Equal(t, "4", snap.Display)

	_, err = c.Clear(ctx)
	require.NoError(t, err)

	snap, err = c.ReplayAt(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "4", snap.Display)

	_, err = c.ReplayAt(ctx, 3)
	require.ErrorIs(t, err, accumulator.ErrEntryNotFound)
}

func TestControllerSerialisesConcurrentSubmits(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Submit(ctx, "1")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Display, 50)
}

func TestControllerClosed(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	c.Close()
	c.Close()

	_, err := c.Submit(context.Background(), "1")
	require.ErrorIs(t, err, ErrClosed)
}

func TestControllerHonoursContext(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Snapshot(ctx)
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
}

func TestControllerAppliedCommandIgnoresLateCancellation(t *testing.T) {
	t.Parallel()

	c := NewController("s1")
	t.Cleanup(c.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := c.do(ctx, func(acc *accumulator.Accumulator) error {
		cancel()
		return acc.Submit("9")
	})
	require.NoError(t, err)
	require.Equal(t, "9", snap.Display)

	snap, err = c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, "9", snap.Display)
}

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	t.Cleanup(s.Close)

	c := s.Create()
	_, err := uuid.Parse(c.ID())
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	got, err := s.Get(c.ID())
	require.NoError(t, err)
	require.Same(t, c, got)

	require.NoError(t, s.Delete(c.ID()))
	require.Equal(t, 0, s.Len())

	_, err = s.Get(c.ID())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(c.ID()), ErrNotFound)

	_, err = c.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestStoreSweep(t *testing.T) {
	t.Parallel()

	s := NewStore(time.Minute)
	t.Cleanup(s.Close)

	s.Create()
	s.Create()

	require.Zero(t, s.Sweep(time.Now()))
	require.Equal(t, 2, s.Sweep(time.Now().Add(2*time.Minute)))
	require.Zero(t, s.Len())
}

func TestStoreSweepDisabled(t *testing.T) {
	t.Parallel()

	s := NewStore(0)
	t.Cleanup(s.Close)

	s.Create()
	require.Zero(t, s.Sweep(time.Now().Add(24*time.Hour)))
	require.Equal(t, 1, s.Len())
}
