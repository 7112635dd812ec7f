// Package instrumentation provides OpenTelemetry instrumentation for
// mindfulday runs.
//
// # Metrics
//
// Run Metrics:
//   - mindfulday_runs_total: Counter of planner runs by status
//   - mindfulday_stage_duration_seconds: Histogram of stage durations by stage and status
//
// External API Metrics:
//   - external_api_operations_total: Counter of calls by service, operation, status
//   - external_api_operation_duration_seconds: Histogram of call durations
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of interactive authorizations by service and result
//   - oauth_token_refresh_total: Counter of token refreshes by service and result
//
// # Tracing
//
// One trace per run. Spans are created for each stage (stage.<name>) and
// each external call (<service>.<operation>).
//
// # Export
//
// A run lasts seconds, so nothing is scraped. Metrics are either pushed
// (otlp, stdout) or, with the prometheus exporter, written once to a
// node_exporter textfile when the provider shuts down.
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: none, prometheus, otlp, stdout (default: none)
//   - METRICS_TEXTFILE_PATH: textfile written by the prometheus exporter
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: mindfulday)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII: delivery audit record
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordAPIOperation(ctx, "weather", "forecast", "success", time.Since(start))
package instrumentation
