package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind labels used in logs and metrics.
const (
	KindAuth       = "auth"
	KindAPI        = "api"
	KindGeneration = "generation"
	KindInternal   = "internal"
)

// AuthError reports that credentials for a service could not be acquired,
// refreshed, or were missing altogether (e.g. an empty API key).
type AuthError struct {
	Service string
	Op      string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: auth failed during %s: %v", e.Service, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: auth failed: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError reports that an external call returned a failure status or could
// not be completed. Status is the HTTP status code, 0 when none was received.
type APIError struct {
	Service string
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Service, e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// GenerationError reports an empty or malformed response from the
// generative model.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plan generation failed: %s: %v", e.Reason, e.Err)
	}
	return "plan generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewAuth returns an AuthError for the given service and operation.
func NewAuth(service, op string, err error) error {
	return &AuthError{Service: service, Op: op, Err: err}
}

// NewAPI returns an APIError with an explicit status and message.
func NewAPI(service, op string, status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Service: service, Op: op, Status: status, Message: message}
}

// NewGeneration returns a GenerationError.
func NewGeneration(reason string, err error) error {
	return &GenerationError{Reason: reason, Err: err}
}

// FromGoogle classifies an error returned by a google.golang.org/api call.
// Token endpoint failures become AuthError, everything else APIError.
// A nil error stays nil, and errors that are already classified are returned unchanged.
func FromGoogle(service, op string, err error) error {
	if err == nil {
		return nil
	}
	if Kind(err) != KindInternal {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &AuthError{Service: service, Op: op, Err: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &APIError{Service: service, Op: op, Status: gerr.Code, Message: msg, Err: err}
	}

	return &APIError{Service: service, Op: op, Err: err}
}

// IsAuth reports whether err wraps an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsAPI reports whether err wraps an APIError.
func IsAPI(err error) bool {
	var target *APIError
	return errors.As(err, &target)
}

// IsGeneration reports whether err wraps a GenerationError.
func IsGeneration(err error) bool {
	var target *GenerationError
	return errors.As(err, &target)
}

// Kind returns a short label for the error classification.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsAuth(err):
		return KindAuth
	case IsAPI(err):
		return KindAPI
	case IsGeneration(err):
		return KindGeneration
	default:
		return KindInternal
	}
}
