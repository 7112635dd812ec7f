package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/mindfulday/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Google authorization",
		Long: `Manage the OAuth tokens mindfulday uses for Google Calendar (read),
Google Tasks (read) and Gmail (send). Tokens are stored one file per service
in the token directory.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "login [calendar|tasks|gmail]...",
		Short:     "Authorize mindfulday for one or more Google services",
		Long:      "Open the Google consent flow for the given services (default: all) and store the resulting tokens.",
		ValidArgs: []string{"calendar", "tasks", "gmail"},
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := parseServices(args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			store, err := a.credentialStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			for _, svc := range services {
				cred, err := store.Login(cmd.Context(), svc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: authorized (expires %s)\n", svc, formatExpiry(cred.Token.Expiry))
			}
			return nil
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored token state of every Google service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			store, err := a.credentialStore(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			status, err := store.Status()
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), a.cfg.TokenDir, status)
		},
	}
}

func parseServices(args []string) ([]google.Service, error) {
	if len(args) == 0 {
		return google.AllServices(), nil
	}
	services := make([]google.Service, 0, len(args))
	for _, arg := range args {
		svc, err := google.ParseService(arg)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

func printStatus(out io.Writer, tokenDir string, status []google.ServiceStatus) error {
	fmt.Fprintf(out, "Token directory: %s\n\n", tokenDir)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATE\tEXPIRY\tREFRESHABLE")
	for _, st := range status {
		expiry := "-"
		refresh := "-"
		if st.State != google.StateUnauthorized {
			expiry = formatExpiry(st.Expiry)
			refresh = yesNo(st.HasRefresh)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", st.Service, st.State, expiry, refresh)
	}
	return w.Flush()
}

func formatExpiry(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
