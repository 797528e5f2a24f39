package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-accumulator/internal/accumulator"
	"go-chi-accumulator/internal/observability"
	"go-chi-accumulator/internal/session"
)

func newREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive calculator reading tokens from stdin.",
		Long: `Reads lines from stdin. Each whitespace-separated word is submitted as one
token and the display is printed after every line.

  history   list past computations, numbered from 1
  use N     reuse the result of history entry N
  use TEXT  reuse the result of a rendered entry, e.g. "use 2 + 2 = 4"
  quit      exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			c := session.NewController(uuid.NewString())
			defer c.Close()

			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), c)
		},
	}
}

// runREPL drives c from lines read on in until EOF, "quit" or ctx is done.
// A blocked read does not delay returning once ctx is done.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, c *session.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := observability.Logger.With(zap.String("session_id", c.ID()))
	lines, readErr := readLines(ctx, in)

	for {
		var raw string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return <-readErr
			}
			raw = l
		}

		line := strings.TrimSpace(raw)
		command, rest, _ := strings.Cut(line, " ")

		var (
			snap session.Snapshot
			err  error
		)

		switch command {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "history":
			snap, err = c.Snapshot(ctx)
			if err != nil {
				return err
			}
			printHistory(out, snap.History)
			continue
		case "use":
			snap, err = replay(ctx, c, strings.TrimSpace(rest))
		default:
			snap, err = submitLine(ctx, c, strings.Fields(line))
		}

		switch {
		case errors.Is(err, accumulator.ErrDivisionByZero),
			errors.Is(err, accumulator.ErrInvalidOperation),
			errors.Is(err, accumulator.ErrEntryNotFound):
			logger.Debug("input rejected", zap.String("line", line), zap.Error(err))
			fmt.Fprintf(out, "error: %v\n", err)
		case err != nil:
			return err
		default:
			printSnapshot(out, snap)
		}
	}
}

// readLines scans in on its own goroutine. The error channel receives the
// scanner error before lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			readErr <- err
			close(lines)
		}()

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		err = scanner.Err()
	}()

	return lines, readErr
}

// submitLine submits tokens in order and stops at the first failure.
func submitLine(ctx context.Context, c *session.Controller, tokens []string) (session.Snapshot, error) {
	var snap session.Snapshot

	for _, tok := range tokens {
		var err error
		snap, err = c.Submit(ctx, tok)
		if err != nil {
			return snap, err
		}
	}

	return snap, nil
}

func replay(ctx context.Context, c *session.Controller, arg string) (session.Snapshot, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		return c.ReplayAt(ctx, n-1)
	}
	return c.Replay(ctx, arg)
}

func printSnapshot(out io.Writer, snap session.Snapshot) {
	if snap.Pending != "" {
		fmt.Fprintf(out, "%s    [%s]\n", snap.Display, snap.Pending)
		return
	}
	fmt.Fprintln(out, snap.Display)
}

func printHistory(out io.Writer, history []string) {
	if len(history) == 0 {
		fmt.Fprintln(out, "(no history)")
		return
	}
	for i, entry := range history {
		fmt.Fprintf(out, "%d: %s\n", i+1, entry)
	}
}
