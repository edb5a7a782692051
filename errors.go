package sepay

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an [Error].
type Kind string

const (
	KindAuthentication Kind = "authentication" // 401 from the gateway.
	KindValidation     Kind = "validation"     // Bad input, either local or a 400 from the gateway.
	KindRateLimit      Kind = "rate_limit"     // 429 after the retry budget was spent.
	KindServer         Kind = "server"         // 5xx after the retry budget was spent.
	KindGeneric        Kind = "generic"        // Transport, decode and unexpected status failures.
)

// Error is returned by every operation of this package that talks to the
// gateway or validates input.
type Error struct {
	Kind    Kind           `json:"kind"`
	Message string         `json:"message"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`

	status     int
	retryAfter time.Duration
	err        error
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.status > 0 {
		return fmt.Sprintf("sepay: %s error (HTTP %d): %s", e.Kind, e.status, e.Message)
	}
	return fmt.Sprintf("sepay: %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// StatusCode is the HTTP status of the failed response, or 0 when no response
// was received or the error was raised locally.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.status
}

// RetryAfter returns the wait the gateway asked for on a rate limited call.
func (e *Error) RetryAfter() time.Duration {
	if e == nil {
		return 0
	}
	return e.retryAfter
}

// Temporary reports whether trying again later may succeed.
func (e *Error) Temporary() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindRateLimit || e.Kind == KindServer
}

// IsKind reports whether err is an [*Error] of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == kind
}

type errorOption func(*Error)

// withStatusCode records the HTTP status of the failed response.
func withStatusCode(status int) errorOption {
	return func(er *Error) {
		er.status = status
	}
}

// withRetryAfter records how long the gateway asked clients to wait.
func withRetryAfter(d time.Duration) errorOption {
	return func(er *Error) {
		er.retryAfter = d
	}
}

// withCause wraps the error that triggered the failure.
func withCause(err error) errorOption {
	return func(er *Error) {
		er.err = err
	}
}

// withDetails attaches structured details decoded from the gateway or
// collected during validation.
func withDetails(details map[string]any) errorOption {
	return func(er *Error) {
		if len(details) > 0 {
			er.Details = details
		}
	}
}

// withCode sets the machine readable code the gateway returned.
func withCode(code string) errorOption {
	return func(er *Error) {
		er.Code = code
	}
}

func newValidationError(message string, opts ...errorOption) *Error {
	return newError(KindValidation, message, opts...)
}

func newGenericError(message string, opts ...errorOption) *Error {
	return newError(KindGeneric, message, opts...)
}

// newStatusError classifies a terminal failed response.
func newStatusError(status int, message string, opts ...errorOption) *Error {
	return newError(kindForStatus(status), message, append(opts, withStatusCode(status))...)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindGeneric
	}
}

func newError(kind Kind, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Kind:    kind,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}
