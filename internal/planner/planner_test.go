package planner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/calendar"
	"github.com/teemow/mindfulday/internal/genai"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/tasks"
	"github.com/teemow/mindfulday/internal/weather"
)

type fakeCredentials struct {
	mu    sync.Mutex
	calls []google.Service
	errs  map[google.Service]error
}

func (f *fakeCredentials) Credential(_ context.Context, svc google.Service) (*google.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, svc)
	if err := f.errs[svc]; err != nil {
		return nil, err
	}
	return google.NewStaticCredential(svc, &oauth2.Token{AccessToken: svc.String() + "-token"}), nil
}

type fakeEvents struct {
	events []calendar.Event
	err    error
	block  bool
	calls  int32
	ctxErr error
	got    calendar.DateRange
}

func (f *fakeEvents) FetchEvents(ctx context.Context, cred *google.Credential, r calendar.DateRange) ([]calendar.Event, error) {
	atomic.AddInt32(&f.calls, 1)
	f.got = r
	if cred == nil || cred.Service != google.ServiceCalendar {
		return nil, errors.New("wrong credential")
	}
	if f.block {
		<-ctx.Done()
		f.ctxErr = ctx.Err()
		return nil, ctx.Err()
	}
	return f.events, f.err
}

type fakeTasks struct {
	tasks []tasks.Task
	err   error
	calls int32
}

func (f *fakeTasks) FetchTasks(_ context.Context, cred *google.Credential) ([]tasks.Task, error) {
	atomic.AddInt32(&f.calls, 1)
	if cred == nil || cred.Service != google.ServiceTasks {
		return nil, errors.New("wrong credential")
	}
	return f.tasks, f.err
}

type fakeWeather struct {
	forecast *weather.Forecast
	err      error
	block    bool
	calls    int32
	city     string
}

func (f *fakeWeather) FetchForecast(ctx context.Context, city string, _ time.Time) (*weather.Forecast, error) {
	atomic.AddInt32(&f.calls, 1)
	f.city = city
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.forecast, f.err
}

type fakeGenerator struct {
	err   error
	calls int32
	input genai.PromptInput
}

func (f *fakeGenerator) GeneratePlan(_ context.Context, in genai.PromptInput) (*genai.DailyPlan, error) {
	atomic.AddInt32(&f.calls, 1)
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	if _, err := genai.BuildPrompt(in); err != nil {
		return nil, err
	}
	plan, err := genai.ParsePlan(`{"summary": "Sunny in ` + in.City + `, go outside.", "plan": {"hours": {"9": "Standup", "10": "Buy groceries"}}}`)
	if err != nil {
		return nil, err
	}
	plan.Date, plan.City = in.Date, in.City
	return plan, nil
}

type fakeMailer struct {
	err       error
	calls     int32
	recipient string
	plan      *genai.DailyPlan
	cred      *google.Credential
}

func (f *fakeMailer) SendPlan(_ context.Context, cred *google.Credential, recipient string, plan *genai.DailyPlan) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.cred, f.recipient, f.plan = cred, recipient, plan
	if f.err != nil {
		return "", f.err
	}
	return "msg-1", nil
}

type fixture struct {
	creds     *fakeCredentials
	events    *fakeEvents
	tasks     *fakeTasks
	weather   *fakeWeather
	generator *fakeGenerator
	mailer    *fakeMailer
	opts      Options
}

var warsaw = mustLoad("Europe/Warsaw")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, 2*60*60)
	}
	return loc
}

// newFixture returns the Warsaw scenario: one standup, one open task and a
// sunny forecast.
func newFixture() *fixture {
	day := time.Date(2026, 10, 15, 0, 0, 0, 0, warsaw)
	return &fixture{
		creds: &fakeCredentials{},
		events: &fakeEvents{events: []calendar.Event{{
			Summary: "Standup",
			Start:   day.Add(9 * time.Hour),
			End:     day.Add(9*time.Hour + 30*time.Minute),
		}}},
		tasks: &fakeTasks{tasks: []tasks.Task{{Title: "Buy groceries", Status: tasks.StatusNeedsAction}}},
		weather: &fakeWeather{forecast: &weather.Forecast{
			City:      "Warsaw",
			Condition: "Sunny",
			MinTempC:  15,
			MaxTempC:  22,
			Hours:     []weather.HourlyWeather{{Time: day.Add(9 * time.Hour), TempC: 15, Condition: "Sunny"}},
		}},
		generator: &fakeGenerator{},
		mailer:    &fakeMailer{},
		opts: Options{
			City:      "Warsaw",
			Recipient: "me@example.com",
			Location:  warsaw,
			Now:       func() time.Time { return time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC) },
		},
	}
}

func (f *fixture) pipeline(t *testing.T, options ...Option) *Pipeline {
	t.Helper()
	options = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, options...)
	c := Components{
		Credentials: f.creds,
		Events:      f.events,
		Tasks:       f.tasks,
		Weather:     f.weather,
		Generator:   f.generator,
	}
	if f.mailer != nil {
		c.Mailer = f.mailer
	}
	p, err := New(c, f.opts, options...)
	require.NoError(t, err)
	return p
}

func TestRun_WarsawScenario(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, warsaw), res.Date)
	require.NotNil(t, res.Plan)
	assert.NotEmpty(t, res.Plan.Text())

	assert.Equal(t, int32(1), f.mailer.calls, "mail is sent exactly once")
	assert.Same(t, res.Plan, f.mailer.plan)
	assert.Equal(t, "me@example.com", f.mailer.recipient)
	assert.Equal(t, google.ServiceGmail, f.mailer.cred.Service)

	assert.Equal(t, "Warsaw", f.weather.city)
	assert.Len(t, f.generator.input.Events, 1)
	assert.Len(t, f.generator.input.Tasks, 1)
	assert.Equal(t, 8, f.generator.input.StartHour)
	assert.Equal(t, 22, f.generator.input.EndHour)

	assert.Equal(t, []google.Service{google.ServiceCalendar, google.ServiceTasks, google.ServiceGmail}, f.creds.calls,
		"credentials are resolved sequentially before fetching")
}

func TestRun_WeatherUnauthorizedAbortsBeforeGeneration(t *testing.T) {
	f := newFixture()
	f.weather.err = apperrors.NewAPI("weather", "forecast", http.StatusUnauthorized, "API key is invalid.")

	res, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)

	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, StageFetch, FailedStage(err))

	assert.Zero(t, f.generator.calls)
	assert.Zero(t, f.mailer.calls)
}

func TestRun_MissingAPIKeysAbort(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture)
		stage string
	}{
		{
			name: "weather",
			setup: func(f *fixture) {
				f.weather.err = apperrors.NewAuth("weather", "forecast", weather.ErrMissingAPIKey)
			},
			stage: StageFetch,
		},
		{
			name: "genai",
			setup: func(f *fixture) {
				f.generator.err = apperrors.NewAuth("genai", "generate", genai.ErrMissingAPIKey)
			},
			stage: StageGenerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setup(f)

			_, err := f.pipeline(t).Run(context.Background())
			assert.True(t, apperrors.IsAuth(err))
			assert.Equal(t, tt.stage, FailedStage(err))
			assert.Zero(t, f.mailer.calls)
		})
	}
}

func TestRun_CredentialFailureStopsBeforeFetching(t *testing.T) {
	f := newFixture()
	f.creds.errs = map[google.Service]error{
		google.ServiceTasks: apperrors.NewAuth("tasks", "refresh token", errors.New("invalid_grant")),
	}

	_, err := f.pipeline(t).Run(context.Background())
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, StageCredentials, FailedStage(err))

	assert.Equal(t, []google.Service{google.ServiceCalendar, google.ServiceTasks}, f.creds.calls)
	assert.Zero(t, f.events.calls)
	assert.Zero(t, f.tasks.calls)
	assert.Zero(t, f.weather.calls)
	assert.Zero(t, f.mailer.calls)
}

func TestRun_HungTokenEndpointIsBounded(t *testing.T) {
	release := make(chan struct{})
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		tokenSrv.Close()
	})

	store := google.NewMemoryTokenStore()
	for _, svc := range google.AllServices() {
		require.NoError(t, store.SaveToken(svc, &oauth2.Token{
			AccessToken:  "stale",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Hour),
		}))
	}

	f := newFixture()
	f.opts.RequestTimeout = 100 * time.Millisecond
	creds, err := google.NewCredentialStore(&oauth2.Config{
		ClientID: "client-id",
		Endpoint: oauth2.Endpoint{TokenURL: tokenSrv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}, store, google.WithRequestTimeout(f.opts.RequestTimeout))
	require.NoError(t, err)

	p, err := New(Components{
		Credentials: creds,
		Events:      f.events,
		Tasks:       f.tasks,
		Weather:     f.weather,
		Generator:   f.generator,
		Mailer:      f.mailer,
	}, f.opts, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, StageCredentials, FailedStage(err))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, f.events.calls)
	assert.Zero(t, f.mailer.calls)
}

func TestRun_GenerationErrorSendsNothing(t *testing.T) {
	f := newFixture()
	f.generator.err = apperrors.NewGeneration("malformed plan JSON", errors.New("unexpected end of JSON input"))

	_, err := f.pipeline(t).Run(context.Background())
	assert.True(t, apperrors.IsGeneration(err))
	assert.Equal(t, StageGenerate, FailedStage(err))
	assert.Zero(t, f.mailer.calls)
}

func TestRun_EmptyForecastIsGenerationError(t *testing.T) {
	f := newFixture()
	f.weather.forecast.Hours = nil

	_, err := f.pipeline(t).Run(context.Background())
	assert.True(t, apperrors.IsGeneration(err))
	assert.Zero(t, f.mailer.calls)
}

func TestRun_SendFailure(t *testing.T) {
	f := newFixture()
	f.mailer.err = apperrors.NewAPI("gmail", "send message", http.StatusForbidden, "insufficient scopes")

	_, err := f.pipeline(t).Run(context.Background())
	assert.True(t, apperrors.IsAPI(err))
	assert.Equal(t, StageSend, FailedStage(err))
	assert.Equal(t, int32(1), f.mailer.calls, "no retry")
}

func TestRun_DryRun(t *testing.T) {
	f := newFixture()
	f.mailer = nil
	f.opts.DryRun = true

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Empty(t, res.MessageID)
	require.NotNil(t, res.Plan)
	assert.NotContains(t, f.creds.calls, google.ServiceGmail, "a dry run does not need mail consent")
}

func TestRun_RequestTimeout(t *testing.T) {
	f := newFixture()
	f.weather.block = true
	f.opts.RequestTimeout = 20 * time.Millisecond

	start := time.Now()
	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, f.generator.calls)
}

func TestRun_FirstFetchErrorCancelsOthers(t *testing.T) {
	f := newFixture()
	f.events.block = true
	tasksErr := apperrors.NewAPI("tasks", "list tasks", http.StatusServiceUnavailable, "backend error")
	f.tasks.err = tasksErr
	f.opts.RequestTimeout = time.Minute

	_, err := f.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tasksErr)
	assert.ErrorIs(t, f.events.ctxErr, context.Canceled)
}

func TestRun_DayIsDeterminedInLocation(t *testing.T) {
	f := newFixture()
	// 23:30 UTC is already the next day in Warsaw.
	f.opts.Now = func() time.Time { return time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC) }

	res, err := f.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	want := time.Date(2026, 10, 16, 0, 0, 0, 0, warsaw)
	assert.Equal(t, want, res.Date)
	assert.True(t, f.events.got.Start.Equal(want))
	assert.True(t, f.events.got.End.Equal(want.AddDate(0, 0, 1)))
}

func TestRun_AuditRecord(t *testing.T) {
	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	f := newFixture()
	_, err := f.pipeline(t, WithAuditLogger(audit)).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"plan_delivered"`)
	assert.Contains(t, buf.String(), `"message_id":"msg-1"`)
	assert.NotContains(t, buf.String(), "me@example.com", "recipient is anonymized")

	buf.Reset()
	f = newFixture()
	f.weather.err = errors.New("boom")
	_, err = f.pipeline(t, WithAuditLogger(audit)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"plan_delivery_failed"`)
	assert.Contains(t, buf.String(), `"stage":"fetch"`)
}

func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(Components{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential provider is required")
	assert.Contains(t, err.Error(), "mail sender is required")

	f := newFixture()
	_, err = New(Components{
		Credentials: f.creds,
		Events:      f.events,
		Tasks:       f.tasks,
		Weather:     f.weather,
		Generator:   f.generator,
	}, Options{DryRun: true})
	assert.NoError(t, err, "a dry run does not need a mailer")
}

func TestStageError(t *testing.T) {
	cause := apperrors.NewAPI("calendar", "list events", http.StatusBadGateway, "")
	err := &StageError{Stage: StageFetch, Err: cause}

	assert.Equal(t, "fetch stage failed: calendar list events: status 502: Bad Gateway", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StageFetch, FailedStage(err))
	assert.Empty(t, FailedStage(errors.New("plain")))
}
