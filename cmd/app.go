package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/teemow/mindfulday/internal/calendar"
	"github.com/teemow/mindfulday/internal/config"
	"github.com/teemow/mindfulday/internal/genai"
	"github.com/teemow/mindfulday/internal/gmail"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
	"github.com/teemow/mindfulday/internal/planner"
	"github.com/teemow/mindfulday/internal/tasks"
	"github.com/teemow/mindfulday/internal/weather"
)

// app holds what every command needs: configuration, logger and telemetry.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	instr    instrumentation.Config
}

// newApp loads the configuration and sets up logging and instrumentation.
// The caller must call close when done so exporters are flushed.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: configFile})
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	if cfg.ConfigFile != "" {
		logger.Debug("configuration loaded", slog.String("file", cfg.ConfigFile))
	}

	return &app{cfg: cfg, logger: logger, provider: provider, instr: instrConfig}, nil
}

// close flushes telemetry. Errors are logged, not returned, so they never
// mask the outcome of the command.
func (a *app) close(ctx context.Context) {
	if err := a.provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn("instrumentation shutdown failed", logging.Err(err))
	}
}

// credentialStore builds the OAuth credential store. Consent prompts are
// written to prompt so they never mix with command output.
func (a *app) credentialStore(prompt io.Writer) (*google.CredentialStore, error) {
	conf, err := google.LoadOAuthConfig(a.cfg.ClientSecretFile)
	if err != nil {
		return nil, err
	}
	if err := a.cfg.EnsureTokenDir(); err != nil {
		return nil, err
	}

	return google.NewCredentialStore(conf, google.NewFileTokenStore(a.cfg.TokenDir),
		google.WithAuthorizer(google.NewConsoleAuthorizer(prompt)),
		google.WithRequestTimeout(a.cfg.RequestTimeout),
		google.WithLogger(a.logger),
		google.WithMetrics(a.provider.Metrics()),
	)
}

// pipeline wires the production clients into a planner.Pipeline.
func (a *app) pipeline(dryRun bool) (*planner.Pipeline, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	creds, err := a.credentialStore(os.Stderr)
	if err != nil {
		return nil, err
	}

	metrics := a.provider.Metrics()
	generator := genai.NewClient(a.cfg.GenAIAPIKey,
		genai.WithModel(a.cfg.GenAIModel),
		genai.WithLogger(a.logger),
		genai.WithMetrics(metrics),
	)
	a.logger.Debug("plan generator configured", slog.String("model", generator.Model()))

	components := planner.Components{
		Credentials: creds,
		Events: calendar.NewClient(
			calendar.WithLogger(a.logger),
			calendar.WithMetrics(metrics),
		),
		Tasks: tasks.NewClient(
			tasks.WithLogger(a.logger),
			tasks.WithMetrics(metrics),
		),
		Weather: weather.NewClient(a.cfg.WeatherAPIKey,
			weather.WithBaseURL(a.cfg.WeatherBaseURL),
			weather.WithHours(a.cfg.DayStartHour, a.cfg.DayEndHour),
			weather.WithLogger(a.logger),
			weather.WithMetrics(metrics),
		),
		Generator: generator,
	}
	if !dryRun {
		components.Mailer = gmail.NewClient(
			gmail.WithLogger(a.logger),
			gmail.WithMetrics(metrics),
		)
	}

	return planner.New(components, planner.Options{
		City:           a.cfg.City,
		Recipient:      a.cfg.Recipient,
		Location:       loc,
		RequestTimeout: a.cfg.RequestTimeout,
		StartHour:      a.cfg.DayStartHour,
		EndHour:        a.cfg.DayEndHour,
		DryRun:         dryRun,
	},
		planner.WithLogger(a.logger),
		planner.WithMetrics(metrics),
		planner.WithAuditLogger(instrumentation.NewAuditLoggerWithConfig(a.logger, a.instr.AuditLogging)),
	)
}
