// Package session runs calculator accumulators behind message-passing
// controllers so HTTP handlers and terminal front-ends never share one directly.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-chi-accumulator/internal/accumulator"
)

// ErrClosed is returned by controller calls made after Close.
var ErrClosed = errors.New("session closed")

// Snapshot is a read-only copy of an accumulator's observable state.
type Snapshot struct {
	ID      string
	Display string
	History []string
	// Pending is "<left> <op>" while a right-hand operand is awaited, else "".
	Pending string
	// Computed is the history entry appended by the command that produced
	// this snapshot, if any.
	Computed *accumulator.HistoryEntry
}

type result struct {
	snapshot Snapshot
	err      error
}

type command struct {
	apply func(*accumulator.Accumulator) error
	reply chan result
}

// Controller owns one accumulator on a dedicated goroutine. All mutations are
// sent to that goroutine as commands and applied one at a time.
type Controller struct {
	id       string
	commands chan command
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once

	mu       sync.Mutex
	lastUsed time.Time
}

// NewController starts a controller for a fresh accumulator.
func NewController(id string) *Controller {
	c := &Controller{
		id:       id,
		commands: make(chan command),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		lastUsed: time.Now(),
	}

	go c.run(accumulator.New())

	return c
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) run(acc *accumulator.Accumulator) {
	defer close(c.stopped)

	for {
		select {
		case cmd := <-c.commands:
			before := acc.HistoryLen()
			err := cmd.apply(acc)

			snap := c.snapshot(acc)
			if acc.HistoryLen() > before {
				if last, ok := acc.Last(); ok {
					snap.Computed = &last
				}
			}

			cmd.reply <- result{snapshot: snap, err: err}
		case <-c.done:
			return
		}
	}
}

func (c *Controller) snapshot(acc *accumulator.Accumulator) Snapshot {
	s := Snapshot{
		ID:      c.id,
		Display: acc.Display(),
		History: acc.History(),
	}
	if left, op, ok := acc.Pending(); ok {
		s.Pending = accumulator.FormatNumber(left) + " " + op.String()
	}
	return s
}

// do sends fn to the owning goroutine and waits for the resulting snapshot.
// The snapshot is returned even when fn fails, reflecting the unchanged state.
// ctx bounds only the hand-off: once the owner has taken fn it is applied, so
// the reply is always awaited.
func (c *Controller) do(ctx context.Context, fn func(*accumulator.Accumulator) error) (Snapshot, error) {
	cmd := command{apply: fn, reply: make(chan result, 1)}

	select {
	case c.commands <- cmd:
	case <-c.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	c.touch()

	res := <-cmd.reply
	return res.snapshot, res.err
}

// Submit feeds one token to the accumulator.
func (c *Controller) Submit(ctx context.Context, token string) (Snapshot, error) {
	return c.do(ctx, func(acc *accumulator.Accumulator) error {
		return acc.Submit(token)
	})
}

// Replay makes the result of a rendered history entry the current number.
func (c *Controller) Replay(ctx context.Context, rendered string) (Snapshot, error) {
	return c.do(ctx, func(acc *accumulator.Accumulator) error {
		acc.Replay(rendered)
		return nil
	})
}

// ReplayAt replays the stored history entry at index.
func (c *Controller) ReplayAt(ctx context.Context, index int) (Snapshot, error) {
	return c.do(ctx, func(acc *accumulator.Accumulator) error {
		return acc.ReplayAt(index)
	})
}

// Clear is equivalent to submitting "ac".
func (c *Controller) Clear(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func(acc *accumulator.Accumulator) error {
		acc.Clear()
		return nil
	})
}

// Snapshot returns the current state without changing it.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	return c.do(ctx, func(*accumulator.Accumulator) error { return nil })
}

// Close stops the owning goroutine and waits for it to exit. It is safe to
// call more than once.
func (c *Controller) Close() {
	c.once.Do(func() { close(c.done) })
	<-c.stopped
}

func (c *Controller) touch() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}

// idleSince reports when the controller last received a command.
func (c *Controller) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}
