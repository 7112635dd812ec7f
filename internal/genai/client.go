package genai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	gemini "google.golang.org/genai"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

// DefaultModel is the Gemini model plans are generated with.
const DefaultModel = "gemini-1.5-flash"

const (
	service   = instrumentation.ServiceGenAI
	operation = instrumentation.OperationGenerate
)

// ErrMissingAPIKey is wrapped in the AuthError returned when no key is configured.
var ErrMissingAPIKey = errors.New("GENAI_API_KEY is not set")

// Client generates daily plans with the Gemini API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithModel sets the model name, with or without the "models/" prefix.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = strings.TrimPrefix(model, "models/")
		}
	}
}

// WithEndpoint overrides the Gemini API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client requests are sent with.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Gemini client. An empty apiKey is accepted here and
// reported as an AuthError by GeneratePlan.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		model:  DefaultModel,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GeneratePlan builds the prompt from in, sends a single generateContent
// request asking for a JSON answer and decodes the answer into a DailyPlan.
func (c *Client) GeneratePlan(ctx context.Context, in PromptInput) (plan *DailyPlan, err error) {
	start := time.Now()
	ctx, span := instrumentation.StartAPISpan(ctx, service, operation,
		attribute.String("genai.model", c.model))
	defer func() {
		c.metrics.RecordAPIOperation(ctx, service, operation, instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	if c.apiKey == "" {
		return nil, apperrors.NewAuth(service, operation, ErrMissingAPIKey)
	}

	text, err := BuildPrompt(in)
	if err != nil {
		return nil, err
	}

	raw, err := c.generate(ctx, text)
	if err != nil {
		return nil, err
	}

	plan, err = ParsePlan(raw)
	if err != nil {
		c.logger.Warn("model answer could not be decoded",
			logging.Service(service),
			slog.Int("answer_bytes", len(raw)),
			logging.Err(err))
		return nil, err
	}
	plan.Date = in.Date
	plan.City = in.City
	if plan.City == "" && in.Forecast != nil {
		plan.City = in.Forecast.City
	}

	c.logger.Debug("plan generated",
		logging.Service(service),
		slog.String("model", c.model),
		slog.Int("hours", len(plan.Hours)),
		slog.Int("breaks", len(plan.Breaks)),
		logging.Duration(time.Since(start)))

	return plan, nil
}

// generate sends prompt and returns the concatenated text of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	cc := &gemini.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    gemini.BackendGeminiAPI,
		HTTPClient: hc,
	}
	if c.endpoint != "" {
		cc.HTTPOptions.BaseURL = c.endpoint
	}
	client, err := gemini.NewClient(ctx, cc)
	if err != nil {
		return "", apperrors.NewAuth(service, "create client", err)
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, gemini.Text(prompt), &gemini.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fromGemini("generate content", err)
	}

	return responseText(resp)
}

// fromGemini maps an SDK error onto the APIError kinds used by the pipeline.
func fromGemini(op string, err error) error {
	var apiErr gemini.APIError
	if !errors.As(err, &apiErr) {
		var ptr *gemini.APIError
		if !errors.As(err, &ptr) || ptr == nil {
			return &apperrors.APIError{Service: service, Op: op, Message: err.Error(), Err: err}
		}
		apiErr = *ptr
	}

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.Code)
	}
	return &apperrors.APIError{Service: service, Op: op, Status: apiErr.Code, Message: msg, Err: err}
}

func responseText(resp *gemini.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", apperrors.NewGeneration("empty response", nil)
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", apperrors.NewGeneration("prompt blocked: "+string(resp.PromptFeedback.BlockReason), nil)
		}
		return "", apperrors.NewGeneration("no candidates in response", nil)
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	if cand != nil && cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p != nil && !p.Thought {
				b.WriteString(p.Text)
			}
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		reason := "empty answer"
		if cand != nil && cand.FinishReason != "" {
			reason += " (finish reason " + string(cand.FinishReason) + ")"
		}
		return "", apperrors.NewGeneration(reason, nil)
	}
	return text, nil
}
