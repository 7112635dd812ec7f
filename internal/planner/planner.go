package planner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teemow/mindfulday/internal/calendar"
	"github.com/teemow/mindfulday/internal/genai"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/tasks"
	"github.com/teemow/mindfulday/internal/weather"
)

// DefaultRequestTimeout bounds every external call of a run.
const DefaultRequestTimeout = 30 * time.Second

// CredentialProvider resolves an authorized credential per Google service.
type CredentialProvider interface {
	Credential(ctx context.Context, svc google.Service) (*google.Credential, error)
}

// EventFetcher lists calendar events.
type EventFetcher interface {
	FetchEvents(ctx context.Context, cred *google.Credential, r calendar.DateRange) ([]calendar.Event, error)
}

// TaskFetcher lists tasks.
type TaskFetcher interface {
	FetchTasks(ctx context.Context, cred *google.Credential) ([]tasks.Task, error)
}

// WeatherFetcher fetches the forecast for a city and day.
type WeatherFetcher interface {
	FetchForecast(ctx context.Context, city string, date time.Time) (*weather.Forecast, error)
}

// PlanGenerator turns the collected inputs into a plan.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, in genai.PromptInput) (*genai.DailyPlan, error)
}

// MailSender delivers a plan and returns the message ID.
type MailSender interface {
	SendPlan(ctx context.Context, cred *google.Credential, recipient string, plan *genai.DailyPlan) (string, error)
}

// Components are the collaborators of a Pipeline. Mailer may be nil for a
// dry run.
type Components struct {
	Credentials CredentialProvider
	Events      EventFetcher
	Tasks       TaskFetcher
	Weather     WeatherFetcher
	Generator   PlanGenerator
	Mailer      MailSender
}

// Options configure a run.
type Options struct {
	City      string
	Recipient string

	// Location is the time zone "today" is determined in. Defaults to time.Local.
	Location *time.Location

	// RequestTimeout applies to each external call separately.
	RequestTimeout time.Duration

	// StartHour and EndHour bound the planned day, inclusive.
	StartHour int
	EndHour   int

	// DryRun generates the plan without sending it.
	DryRun bool

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Result is what a run produced.
type Result struct {
	Date      time.Time
	Events    []calendar.Event
	Tasks     []tasks.Task
	Forecast  *weather.Forecast
	Plan      *genai.DailyPlan
	MessageID string // empty for a dry run
	DryRun    bool
	Duration  time.Duration
}

// Pipeline runs credentials, fetch, generate and send in that order and
// aborts at the first error.
type Pipeline struct {
	c    Components
	opts Options

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithAuditLogger sets the logger that records one delivery entry per run.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(p *Pipeline) { p.audit = a }
}

// New creates a Pipeline. All components except the mailer of a dry run
// are required.
func New(c Components, opts Options, options ...Option) (*Pipeline, error) {
	var missing []error
	if c.Credentials == nil {
		missing = append(missing, errors.New("credential provider is required"))
	}
	if c.Events == nil {
		missing = append(missing, errors.New("event fetcher is required"))
	}
	if c.Tasks == nil {
		missing = append(missing, errors.New("task fetcher is required"))
	}
	if c.Weather == nil {
		missing = append(missing, errors.New("weather fetcher is required"))
	}
	if c.Generator == nil {
		missing = append(missing, errors.New("plan generator is required"))
	}
	if c.Mailer == nil && !opts.DryRun {
		missing = append(missing, errors.New("mail sender is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.StartHour == 0 && opts.EndHour == 0 {
		opts.StartHour, opts.EndHour = weather.DefaultStartHour, weather.DefaultEndHour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Pipeline{
		c:      c,
		opts:   opts,
		logger: slog.Default(),
	}
	for _, o := range options {
		o(p)
	}
	return p, nil
}
