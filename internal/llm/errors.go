package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Failure classifies why a provider call failed.
type Failure int

const (
	// FailureUnavailable covers network errors and provider-side faults.
	FailureUnavailable Failure = iota
	// FailureRateLimited is an HTTP 429 from the provider.
	FailureRateLimited
	// FailureAuth is a rejected or missing API key. Retrying cannot help.
	FailureAuth
	// FailureInvalidResponse is empty output or output that breaks the
	// requested schema.
	FailureInvalidResponse
	// FailureTruncated is structured output cut off at MaxTokens.
	FailureTruncated
)

func (f Failure) String() string {
	switch f {
	case FailureRateLimited:
		return "rate limited"
	case FailureAuth:
		return "authentication failed"
	case FailureInvalidResponse:
		return "invalid response"
	case FailureTruncated:
		return "response truncated at max tokens"
	default:
		return "provider unavailable"
	}
}

// Error is returned by every Provider for a failed call.
type Error struct {
	Failure Failure
	// RetryAfter is the provider's requested wait, when it sent one.
	RetryAfter time.Duration
	// Content holds the raw output for invalid or truncated responses.
	Content json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "llm: " + e.Failure.String()
	}
	return fmt.Sprintf("llm: %s: %v", e.Failure, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FailureOf reports the Failure carried by err, if any.
func FailureOf(err error) (Failure, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Failure, true
	}
	return 0, false
}

func invalidResponse(raw json.RawMessage, err error) *Error {
	return &Error{Failure: FailureInvalidResponse, Content: raw, Err: err}
}

// statusError classifies a provider API error by its HTTP status.
func statusError(status int, err error) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return &Error{Failure: FailureRateLimited, Err: err}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &Error{Failure: FailureAuth, Err: err}
	}
	return &Error{Failure: FailureUnavailable, Err: err}
}
