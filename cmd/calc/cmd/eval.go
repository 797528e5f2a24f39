package cmd

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"go-chi-accumulator/internal/session"
)

func newEvalCommand() *cobra.Command {
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "eval TOKEN...",
		Short: "Submit tokens and print the final display.",
		Long: `Submits each argument as one token and prints the resulting display.
Quote "*" to keep the shell from expanding it, and put negative numbers
after "--" so they are not read as flags:

  calc eval -- 7 + -3 =`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := session.NewController(uuid.NewString())
			defer c.Close()

			snap, err := submitLine(cmd.Context(), c, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSnapshot(out, snap)
			if showHistory {
				printHistory(out, snap.History)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showHistory, "history", false, "also print the computation history")

	return cmd
}
