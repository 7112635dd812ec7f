package calendar

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

const (
	primaryCalendar = "primary"
	pageSize        = 250
)

// Client reads events from the user's primary Google Calendar.
type Client struct {
	transport google.Transport
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the Calendar API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.transport.Endpoint = endpoint }
}

// WithHTTPClient sets the base HTTP client requests are sent through.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.transport.HTTPClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Calendar client.
func NewClient(opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchEvents returns the events of the primary calendar that overlap r,
// with recurring events expanded and ordered by start time. All pages are
// read. The call is made once; any failure is returned as an APIError.
func (c *Client) FetchEvents(ctx context.Context, cred *google.Credential, r DateRange) (events []Event, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList)
	defer func() {
		c.metrics.RecordAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
			instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	opts, err := c.transport.ClientOptions(ctx, google.ServiceCalendar, cred)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.FromGoogle(instrumentation.ServiceCalendar, "create service", err)
	}

	loc := r.Start.Location()
	call := svc.Events.List(primaryCalendar).
		TimeMin(r.Start.Format(time.RFC3339)).
		TimeMax(r.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(pageSize)

	events = []Event{}
	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, toEvent(item, loc))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromGoogle(instrumentation.ServiceCalendar, "list events", err)
	}

	c.logger.Debug("calendar events fetched",
		logging.Service(instrumentation.ServiceCalendar),
		logging.Count(len(events)),
		logging.Duration(time.Since(start)))

	return events, nil
}
