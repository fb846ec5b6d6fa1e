package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode classifies upstream call errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates the upstream is rate limiting us (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a malformed request (400).
	ErrCodeValidation
	// ErrCodeServer indicates an upstream-side error (5xx).
	ErrCodeServer
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a structured upstream call error with classification.
//
// Retryable is an explicit allow-list decision made at construction, the
// boundary the retry policy and circuit breaker act on. Timeouts, connection
// failures, rate limits, and 5xx responses are transient; auth, not-found,
// and validation failures are permanent and must not consume retries.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// RetryAfter is the upstream-provided delay before retrying, when the
	// response carried one (429 Retry-After). Zero means no hint.
	RetryAfter time.Duration
	// Body is the original response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// RetryAfterHint reports the upstream-provided retry delay. The retry policy
// prefers this hint over its computed backoff.
func (e *Error) RetryAfterHint() time.Duration {
	return e.RetryAfter
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTimeout,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnection,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewAuthError creates an authentication error.
func NewAuthError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeAuth,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  false,
		Body:       body,
	}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(body []byte) *Error {
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       ErrCodeNotFound,
		Message:    "HTTP 404",
		Retryable:  false,
		Body:       body,
	}
}

// NewValidationError creates a malformed-request error.
func NewValidationError(body []byte) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       ErrCodeValidation,
		Message:    "HTTP 400",
		Retryable:  false,
		Body:       body,
	}
}

// NewRateLimitError creates a rate-limit error carrying the upstream's
// Retry-After hint (zero if none was provided).
func NewRateLimitError(retryAfter time.Duration, body []byte) *Error {
	return &Error{
		StatusCode: http.StatusTooManyRequests,
		Code:       ErrCodeRateLimit,
		Message:    "HTTP 429",
		Retryable:  true,
		RetryAfter: retryAfter,
		Body:       body,
	}
}

// NewServerError creates an upstream-side error.
func NewServerError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       ErrCodeServer,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Retryable:  true,
		Body:       body,
	}
}

// FromStatus classifies an HTTP response status into an Error.
// Returns nil for success statuses.
func FromStatus(statusCode int, body []byte) *Error {
	switch {
	case statusCode < 400:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewAuthError(statusCode, body)
	case statusCode == http.StatusNotFound:
		return NewNotFoundError(body)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(0, body)
	case statusCode >= 500:
		return NewServerError(statusCode, body)
	case statusCode == http.StatusBadRequest:
		return NewValidationError(body)
	default:
		return &Error{
			StatusCode: statusCode,
			Code:       ErrCodeValidation,
			Message:    fmt.Sprintf("HTTP %d", statusCode),
			Retryable:  false,
			Body:       body,
		}
	}
}

// IsRetryable reports whether err is a transient upstream error. Unknown
// error types are not retryable: retry decisions are allow-list only.
func IsRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Code == ErrCodeAuth
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Code == ErrCodeNotFound
}

// IsRateLimit reports whether err is an upstream rate-limit response.
func IsRateLimit(err error) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Code == ErrCodeRateLimit
}
