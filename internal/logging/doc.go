// Package logging provides structured logging utilities for mindfulday.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Build the process logger once from configuration:
//
//	logger, err := logging.New(logging.Options{Level: "debug", Format: "json"})
//
// Create a logger with standard attributes:
//
//	logger := logging.WithStage(logger, "fetch")
//	logger.Info("events fetched", logging.Count(len(events)))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("plan sent", logging.UserHash(recipient))
//
// # Security Considerations
//
//   - Recipient addresses are hashed to prevent PII leakage while allowing correlation
//   - Tokens and API keys are never logged directly, only SanitizeToken output
package logging
