package planner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/mindfulday/internal/calendar"
	"github.com/teemow/mindfulday/internal/genai"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
	"github.com/teemow/mindfulday/internal/tasks"
	"github.com/teemow/mindfulday/internal/weather"
)

// credentials are resolved once per run, before anything runs concurrently.
type credentials struct {
	calendar *google.Credential
	tasks    *google.Credential
	gmail    *google.Credential
}

// Run executes one planning run for today. Any error aborts the run and is
// returned as a *StageError; the plan is mailed only when every earlier
// stage succeeded, and at most once.
func (p *Pipeline) Run(ctx context.Context) (result *Result, err error) {
	start := time.Now()
	now := p.opts.Now().In(p.opts.Location)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.opts.Location)

	ctx, span := instrumentation.StartSpan(ctx, "planner.run",
		attribute.String(instrumentation.SpanAttrCity, p.opts.City),
		attribute.String(instrumentation.SpanAttrDate, day.Format("2006-01-02")),
		attribute.Bool(instrumentation.SpanAttrDryRun, p.opts.DryRun),
	)

	record := instrumentation.NewDeliveryRecord(p.opts.Recipient, p.opts.City).WithSpanContext(ctx)
	record.Date = day.Format("2006-01-02")
	record.DryRun = p.opts.DryRun

	logger := p.logger.With(logging.City(p.opts.City), slog.String("date", record.Date))
	logger.Info("planning run started", slog.Bool("dry_run", p.opts.DryRun))

	defer func() {
		p.metrics.RecordRun(ctx, instrumentation.StatusFromError(err), p.opts.City)
		if result != nil {
			record.MessageID = result.MessageID
		}
		record.Complete(FailedStage(err), err)
		p.audit.LogDelivery(record)
		instrumentation.EndSpan(span, err)

		if err != nil {
			logger.Error("planning run failed",
				logging.Stage(FailedStage(err)),
				logging.Duration(time.Since(start)),
				logging.Err(err))
			return
		}
		logger.Info("planning run completed",
			logging.Status(logging.StatusSuccess),
			logging.Duration(time.Since(start)))
	}()

	res := &Result{Date: day, DryRun: p.opts.DryRun}

	var creds credentials
	if err := p.stage(ctx, logger, StageCredentials, func(ctx context.Context) error {
		var err error
		creds, err = p.resolveCredentials(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, logger, StageFetch, func(ctx context.Context) error {
		return p.fetch(ctx, creds, day, res)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, logger, StageGenerate, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()

		plan, err := p.c.Generator.GeneratePlan(ctx, genai.PromptInput{
			Date:      day,
			City:      p.opts.City,
			Events:    res.Events,
			Tasks:     res.Tasks,
			Forecast:  res.Forecast,
			StartHour: p.opts.StartHour,
			EndHour:   p.opts.EndHour,
		})
		if err != nil {
			return err
		}
		res.Plan = plan
		return nil
	}); err != nil {
		return nil, err
	}

	if p.opts.DryRun {
		logger.Info("dry run, plan not sent")
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := p.stage(ctx, logger, StageSend, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()

		id, err := p.c.Mailer.SendPlan(ctx, creds.gmail, p.opts.Recipient, res.Plan)
		if err != nil {
			return err
		}
		res.MessageID = id
		return nil
	}); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	return res, nil
}

// stage runs fn inside a span, records its duration and wraps its error
// in a StageError.
func (p *Pipeline) stage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) (err error) {
	start := time.Now()
	ctx, span := instrumentation.StartStageSpan(ctx, name)
	defer func() {
		p.metrics.RecordStage(ctx, name, instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	if err := fn(ctx); err != nil {
		return &StageError{Stage: name, Err: err}
	}

	logger.Debug("stage completed", logging.Stage(name), logging.Duration(time.Since(start)))
	return nil
}

// resolveCredentials resolves every credential the run needs, one service
// at a time. Token refreshes therefore finish before any fetch starts.
// A dry run never sends mail and does not need the Gmail credential.
func (p *Pipeline) resolveCredentials(ctx context.Context) (credentials, error) {
	var creds credentials
	targets := []struct {
		svc  google.Service
		dest **google.Credential
	}{
		{google.ServiceCalendar, &creds.calendar},
		{google.ServiceTasks, &creds.tasks},
		{google.ServiceGmail, &creds.gmail},
	}

	for _, t := range targets {
		if t.svc == google.ServiceGmail && p.opts.DryRun {
			continue
		}
		cred, err := p.c.Credentials.Credential(ctx, t.svc)
		if err != nil {
			return credentials{}, err
		}
		*t.dest = cred
	}
	return creds, nil
}

// fetch gathers events, tasks and the forecast concurrently. The first
// failure cancels the other calls.
func (p *Pipeline) fetch(ctx context.Context, creds credentials, day time.Time, res *Result) error {
	var (
		events   []calendar.Event
		taskList []tasks.Task
		forecast *weather.Forecast
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, p.opts.RequestTimeout)
		defer cancel()
		var err error
		events, err = p.c.Events.FetchEvents(ctx, creds.calendar, calendar.DayRange(day, p.opts.Location))
		return err
	})

	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, p.opts.RequestTimeout)
		defer cancel()
		var err error
		taskList, err = p.c.Tasks.FetchTasks(ctx, creds.tasks)
		return err
	})

	g.Go(func() error {
		ctx, cancel := context.WithTimeout(gctx, p.opts.RequestTimeout)
		defer cancel()
		var err error
		forecast, err = p.c.Weather.FetchForecast(ctx, p.opts.City, day)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	res.Events = events
	res.Tasks = taskList
	res.Forecast = forecast

	hours := 0
	if forecast != nil {
		hours = len(forecast.Hours)
	}
	p.logger.Info("inputs collected",
		slog.Int("events", len(events)),
		slog.Int("tasks", len(taskList)),
		slog.Int("forecast_hours", hours))
	return nil
}
