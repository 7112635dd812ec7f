package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate today's plan and print it without sending",
		Long: `Run the pipeline up to plan generation and print the plan to standard
output. No email is sent and no Gmail authorization is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			p, err := a.pipeline(true)
			if err != nil {
				return err
			}

			res, err := p.Run(ctx)
			if err != nil {
				return err
			}

			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), res.Plan.Raw)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), res.Plan.Text())
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the model's JSON answer instead of the rendered plan")

	return cmd
}
