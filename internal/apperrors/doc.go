// Package apperrors defines the error kinds surfaced by a planning run.
//
// Three kinds exist:
//   - AuthError: credentials could not be acquired or refreshed, or an API key is missing
//   - APIError: an external service answered with a failure status or was unreachable
//   - GenerationError: the generative model returned nothing usable
//
// Components wrap their failures in one of these types and callers classify
// them with errors.As (or the IsAuth/IsAPI/IsGeneration helpers), no matter
// how many times the error was wrapped on the way up.
package apperrors
