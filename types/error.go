package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Upstream and transport error codes.
const (
	// ErrUpstreamUnavailable indicates the text-generation backend or a
	// remote participant could not be reached at the transport level.
	ErrUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrUpstreamTimeout indicates a remote call exceeded its fixed budget.
	// Deliberately distinct from UPSTREAM_UNAVAILABLE so callers can tell a
	// slow agent from a dead one.
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	// ErrAgentUnreachable indicates capability resolution for a remote
	// participant failed after bounded retries.
	ErrAgentUnreachable ErrorCode = "AGENT_UNREACHABLE"
)

// Session and persistence error codes.
const (
	// ErrInvalidState indicates a serialized session blob did not match the
	// expected kind or schema version.
	ErrInvalidState ErrorCode = "INVALID_STATE"
	// ErrStoreFailure indicates a persistence backend error other than a
	// missing key. Store failures always propagate; a swallowed save
	// silently loses conversation history.
	ErrStoreFailure ErrorCode = "STORE_FAILURE"
)

// Request-level error codes.
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
