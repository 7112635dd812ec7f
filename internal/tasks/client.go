package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

// DefaultList is the task list every Google account has.
const DefaultList = "@default"

const pageSize = 100

// Client reads the user's default Google Tasks list.
type Client struct {
	transport google.Transport
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the Tasks API base URL.
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

// NewClient creates a Tasks client.
func NewClient(opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTasks returns every task of the default list, completed ones
// included, in the order the API returns them.
func (c *Client) FetchTasks(ctx context.Context, cred *google.Credential) (result []Task, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ServiceTasks, instrumentation.OperationList)
	defer func() {
		c.metrics.RecordAPIOperation(ctx, instrumentation.ServiceTasks, instrumentation.OperationList,
			instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	opts, err := c.transport.ClientOptions(ctx, google.ServiceTasks, cred)
	if err != nil {
		return nil, err
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.FromGoogle(instrumentation.ServiceTasks, "create service", err)
	}

	call := svc.Tasks.List(DefaultList).
		ShowCompleted(true).
		MaxResults(pageSize)

	result = []Task{}
	err = call.Pages(ctx, func(page *tasks.Tasks) error {
		for _, item := range page.Items {
			result = append(result, toTask(item))
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromGoogle(instrumentation.ServiceTasks, "list tasks", err)
	}

	c.logger.Debug("tasks fetched",
		logging.Service(instrumentation.ServiceTasks),
		logging.Count(len(result)),
		logging.Duration(time.Since(start)))

	return result, nil
}
