package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Global flags shared by all commands.
var (
	configFile string
	logLevel   string
	logFormat  string
)

// rootCmd represents the base command for the mindfulday application
var rootCmd = &cobra.Command{
	Use:   "mindfulday",
	Short: "Emails you an AI-generated plan for today",
	Long: `mindfulday collects today's Google Calendar events, your Google Tasks and
the weather forecast for your city, asks Gemini to compose a mindful plan for
the day and emails it to you through Gmail.

Running mindfulday without a command runs the whole pipeline once.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mindfulday version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/mindfulday/mindfulday.yaml or ./mindfulday.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error. Overrides the config file.")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json. Overrides the config file.")

	// Without a subcommand the root runs the pipeline, global flags included.
	rootCmd.Args = cobra.NoArgs
	rootCmd.RunE = runE

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
