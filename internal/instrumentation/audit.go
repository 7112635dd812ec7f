package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/mindfulday/internal/logging"
)

// DeliveryRecord captures the outcome of one planner run for the audit log:
// who the plan went to, where it was planned for and whether it arrived.
//
// # Privacy Considerations
//
// Recipient contains PII. Unless the audit logger is configured with
// IncludePII, only the recipient hash and domain are logged.
type DeliveryRecord struct {
	Recipient string
	City      string
	Date      string // YYYY-MM-DD
	MessageID string
	DryRun    bool

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Stage     string // stage that failed, empty on success
	Error     string

	TraceID string
	SpanID  string
}

// NewDeliveryRecord creates a record with timing started.
// Call Complete() when the run finishes.
func NewDeliveryRecord(recipient, city string) *DeliveryRecord {
	return &DeliveryRecord{
		Recipient: recipient,
		City:      city,
		StartTime: time.Now(),
	}
}

// WithSpanContext extracts trace context from the current span.
func (r *DeliveryRecord) WithSpanContext(ctx context.Context) *DeliveryRecord {
	r.TraceID = GetTraceID(ctx)
	r.SpanID = GetSpanID(ctx)
	return r
}

// Complete marks the run as finished and calculates its duration.
func (r *DeliveryRecord) Complete(stage string, err error) *DeliveryRecord {
	r.Duration = time.Since(r.StartTime)
	r.Success = err == nil
	if err != nil {
		r.Stage = stage
		r.Error = err.Error()
	}
	return r
}

// Status returns "success" or "error" based on the Success field.
func (r *DeliveryRecord) Status() string {
	if r.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns the anonymized attributes of the record.
func (r *DeliveryRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.UserHash(r.Recipient),
		slog.String("recipient_domain", ExtractUserDomain(r.Recipient)),
	}
	return append(attrs, r.commonAttrs()...)
}

// LogAuditAttrs returns the attributes including the full recipient address.
func (r *DeliveryRecord) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("recipient", r.Recipient),
	}
	return append(attrs, r.commonAttrs()...)
}

func (r *DeliveryRecord) commonAttrs() []slog.Attr {
	attrs := []slog.Attr{
		logging.City(r.City),
		logging.Duration(r.Duration),
		slog.Bool("success", r.Success),
	}

	if r.Date != "" {
		attrs = append(attrs, slog.String("date", r.Date))
	}
	if r.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}
	if r.MessageID != "" {
		attrs = append(attrs, slog.String("message_id", r.MessageID))
	}
	if r.Stage != "" {
		attrs = append(attrs, logging.Stage(r.Stage))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String(logging.KeyError, r.Error))
	}

	return attrs
}

// AuditLogger writes one delivery record per run.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger that anonymizes recipients.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogDelivery logs the record. A nil AuditLogger logs nothing.
func (al *AuditLogger) LogDelivery(r *DeliveryRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = r.LogAuditAttrs()
	} else {
		attrs = r.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	switch {
	case r.Success && r.DryRun:
		al.logger.Info("plan_previewed", args...)
	case r.Success:
		al.logger.Info("plan_delivered", args...)
	default:
		al.logger.Warn("plan_delivery_failed", args...)
	}
}
