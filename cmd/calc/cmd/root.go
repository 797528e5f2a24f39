package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"go-chi-accumulator/internal/observability"
)

var (
	// logLevel is the zap level for diagnostic output on stderr.
	logLevel string

	// rootCmd is the base command; it only hosts subcommands.
	rootCmd = &cobra.Command{
		Use:   "calc",
		Short: "Token-driven accumulator calculator.",
		Long: `A single-register calculator driven by input tokens:
digits and "." build a number, + - * / pick an operator, = evaluates,
ac clears and < deletes the last character.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := zapcore.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			return observability.InitLogger(level)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			observability.SyncLogger()
		},
	}
)

// Execute runs the calc CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newREPLCommand(), newEvalCommand())
}
