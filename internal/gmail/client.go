package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/mindfulday/internal/apperrors"
	"github.com/teemow/mindfulday/internal/genai"
	"github.com/teemow/mindfulday/internal/google"
	"github.com/teemow/mindfulday/internal/instrumentation"
	"github.com/teemow/mindfulday/internal/logging"
)

const (
	service   = instrumentation.ServiceGmail
	operation = instrumentation.OperationSend

	// me is the Gmail API alias for the authorized user.
	me = "me"
)

// Validation errors returned before any request is made.
var (
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrEmptyPlan        = errors.New("plan is empty")
)

// Client sends plans through the authorized user's Gmail account.
type Client struct {
	transport google.Transport
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the Gmail API base URL.
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

// NewClient creates a Gmail client.
func NewClient(opts ...Option) *Client {
	c := &Client{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendPlan emails plan to recipient and returns the Gmail message ID.
// The subject is "Mindful Day AI - DD-MM-YYYY" for the plan's date. The
// message is sent once; Gmail accepting it is the only acknowledgment.
func (c *Client) SendPlan(ctx context.Context, cred *google.Credential, recipient string, plan *genai.DailyPlan) (id string, err error) {
	to, err := validateRecipient(recipient)
	if err != nil {
		return "", err
	}
	if plan == nil || strings.TrimSpace(plan.Text()) == "" || (plan.Summary == "" && len(plan.Hours) == 0) {
		return "", ErrEmptyPlan
	}

	day := plan.Date
	if day.IsZero() {
		day = time.Now()
	}
	raw, err := buildMessage(to, Subject(day), plan)
	if err != nil {
		return "", err
	}

	start := time.Now()
	ctx, span := instrumentation.StartAPISpan(ctx, service, operation)
	defer func() {
		c.metrics.RecordAPIOperation(ctx, service, operation, instrumentation.StatusFromError(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	opts, err := c.transport.ClientOptions(ctx, google.ServiceGmail, cred)
	if err != nil {
		return "", err
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return "", apperrors.FromGoogle(service, "create service", err)
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := svc.Users.Messages.Send(me, msg).Context(ctx).Do()
	if err != nil {
		return "", apperrors.FromGoogle(service, "send message", err)
	}

	c.logger.Info("plan sent",
		logging.Service(service),
		logging.UserHash(to),
		slog.String("message_id", sent.Id),
		logging.Duration(time.Since(start)))

	return sent.Id, nil
}

func validateRecipient(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", fmt.Errorf("%w: recipient is required", ErrInvalidRecipient)
	}
	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	}
	return addr.Address, nil
}
