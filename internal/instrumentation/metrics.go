package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrStage     = "stage"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrCity      = "city"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics and a zero Metrics are both valid no-op recorders.
type Metrics struct {
	// Run metrics
	runsTotal     metric.Int64Counter
	stageDuration metric.Float64Histogram

	// External API metrics
	apiOperationsTotal   metric.Int64Counter
	apiOperationDuration metric.Float64Histogram

	// OAuth metrics
	oauthAuthTotal         metric.Int64Counter
	oauthTokenRefreshTotal metric.Int64Counter

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.runsTotal, err = meter.Int64Counter(
		"mindfulday_runs_total",
		metric.WithDescription("Total number of planner runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mindfulday_runs_total counter: %w", err)
	}

	m.stageDuration, err = meter.Float64Histogram(
		"mindfulday_stage_duration_seconds",
		metric.WithDescription("Planner stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mindfulday_stage_duration_seconds histogram: %w", err)
	}

	m.apiOperationsTotal, err = meter.Int64Counter(
		"external_api_operations_total",
		metric.WithDescription("Total number of external API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operations_total counter: %w", err)
	}

	m.apiOperationDuration, err = meter.Float64Histogram(
		"external_api_operation_duration_seconds",
		metric.WithDescription("External API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create external_api_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of interactive OAuth authorizations"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.oauthTokenRefreshTotal, err = meter.Int64Counter(
		"oauth_token_refresh_total",
		metric.WithDescription("Total number of OAuth token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_refresh_total counter: %w", err)
	}

	return m, nil
}

// RecordRun records the outcome of one planner run. The city is only
// attached when detailed labels are enabled.
func (m *Metrics) RecordRun(ctx context.Context, status, city string) {
	if m == nil || m.runsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && city != "" {
		attrs = append(attrs, attribute.String(attrCity, city))
	}

	m.runsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStage records how long a planner stage took and how it ended.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil || m.stageDuration == nil {
		return // Instrumentation not initialized
	}

	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	))
}

// RecordAPIOperation records an external API call.
//
// Parameters:
//   - service: calendar, tasks, gmail, weather or genai
//   - operation: list, send, forecast, generate
//   - status: "success" or "error"
//   - duration: Time taken for the call
func (m *Metrics) RecordAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.apiOperationsTotal == nil || m.apiOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.apiOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an interactive authorization attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthAuth(ctx context.Context, service, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrResult, result),
	))
}

// RecordOAuthTokenRefresh records an OAuth token refresh attempt.
// Result should be one of: "success", "failure"
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, service, result string) {
	if m == nil || m.oauthTokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.oauthTokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrResult, result),
	))
}

// StatusFromError maps an error to a status label value.
func StatusFromError(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
