package instrumentation

import "strings"

// Recipient addresses must never become metric labels. Audit records and
// run metrics go through these helpers whenever a recipient has to be
// recorded somewhere searchable.

const unknownDomain = "unknown"

// ExtractUserDomain returns the lowercased domain of a recipient address,
// or "unknown" when the address has no single "@" followed by a domain.
//
//	ExtractUserDomain("Jane@Example.COM")  // "example.com"
//	ExtractUserDomain("plans")             // "unknown"
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return unknownDomain
	}
	return strings.ToLower(domain)
}

// Operation names for external API metrics.
const (
	OperationList     = "list"
	OperationSend     = "send"
	OperationForecast = "forecast"
	OperationGenerate = "generate"
)
