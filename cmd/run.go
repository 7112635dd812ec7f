package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate today's plan and email it",
		Long: `Resolve Google credentials, fetch today's events, tasks and weather forecast,
generate the plan with Gemini and email it to the configured recipient.

This is the default command. Any failure aborts the run without sending mail
and exits with a non-zero status.`,
		Args: cobra.NoArgs,
		RunE: runE,
	}

	return cmd
}

func runE(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return runPipeline(ctx, cmd)
}

func runPipeline(ctx context.Context, cmd *cobra.Command) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	p, err := a.pipeline(false)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s sent (message %s)\n", res.Date.Format("02-01-2006"), res.MessageID)
	return nil
}
