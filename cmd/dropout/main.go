package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dropout/internal/config"
)

// dropout marks enrollments past their deadline as dropped out.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "dropout",
		Short:        "Mark enrollments past their deadline as dropped out",
		Long:         "Runs the enrollments:dropout job once inside a single transaction.\nSet DROPOUT_DRY_RUN=true to roll the transaction back instead of committing.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// runOnce prints its own failure line
			cmd.SilenceErrors = true
			return runOnce(cmd.Context(), config.Load(), cmd.OutOrStdout())
		},
	}
	root.AddCommand(newScheduleCommand())
	return root
}
