package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies the failures the downloader distinguishes between
type ErrorType string

const (
	ErrorTypeSetup             ErrorType = "setup"
	ErrorTypeParsing           ErrorType = "parsing"
	ErrorTypeHTTPStatus        ErrorType = "http_status"
	ErrorTypeTransport         ErrorType = "transport"
	ErrorTypePartialWrite      ErrorType = "partial_write"
	ErrorTypeMigrationConflict ErrorType = "migration_conflict"
	ErrorTypeLedgerIO          ErrorType = "ledger_io"
	ErrorTypeOutOfRange        ErrorType = "out_of_range"
	ErrorTypeAuthRequired      ErrorType = "auth_required"
	ErrorTypeCanceled          ErrorType = "canceled"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error carries the failure class, an optional HTTP status code, and
// whether another attempt may succeed
type Error struct {
	Type      ErrorType
	Message   string
	Code      int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates an error of the given type with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a type while keeping it unwrappable
func Wrap(err error, errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// NewSetup creates a run-fatal configuration or pre-flight error
func NewSetup(format string, args ...interface{}) *Error {
	return Newf(ErrorTypeSetup, format, args...)
}

// NewOutOfRange reports a canvas index outside 1..count
func NewOutOfRange(index, count int) *Error {
	return Newf(ErrorTypeOutOfRange, "canvas index %d out of range (manifest has %d canvases)", index, count)
}

// NewHTTPStatus classifies an unexpected HTTP response status.
// 429/503 and all 5xx are retryable; 401/403 indicate the resource
// needs authentication the tool does not perform; other 4xx are final.
func NewHTTPStatus(code int, url string) *Error {
	switch {
	case code == 401 || code == 403:
		return &Error{
			Type:    ErrorTypeAuthRequired,
			Code:    code,
			Message: fmt.Sprintf("access to %s denied (HTTP %d); the resource requires authentication", url, code),
		}
	case IsRetryableStatusCode(code):
		return &Error{
			Type:      ErrorTypeHTTPStatus,
			Code:      code,
			Retryable: true,
			Message:   fmt.Sprintf("server returned HTTP %d for %s", code, url),
		}
	default:
		return &Error{
			Type:    ErrorTypeHTTPStatus,
			Code:    code,
			Message: fmt.Sprintf("server returned HTTP %d for %s", code, url),
		}
	}
}

// NewTransport wraps a connection-level failure (reset, timeout, DNS)
func NewTransport(err error, url string) *Error {
	return &Error{
		Type:      ErrorTypeTransport,
		Retryable: true,
		Message:   fmt.Sprintf("request to %s failed: %v", url, err),
		Err:       err,
	}
}

// NewPartialWrite wraps a local filesystem failure during streaming
func NewPartialWrite(err error, path string) *Error {
	return &Error{
		Type:    ErrorTypePartialWrite,
		Message: fmt.Sprintf("writing %s failed: %v", path, err),
		Err:     err,
	}
}

// NewMigrationConflict reports that the migration destination already
// exists with different content
func NewMigrationConflict(from, to string) *Error {
	return Newf(ErrorTypeMigrationConflict, "cannot rename %s: %s already exists with different content", from, to)
}

// NewLedgerIO wraps a failure persisting the resume ledger
func NewLedgerIO(err error, path string) *Error {
	return &Error{
		Type:    ErrorTypeLedgerIO,
		Message: fmt.Sprintf("cannot persist resume state to %s: %v", path, err),
		Err:     err,
	}
}

// IsRetryable reports whether another attempt at the failed operation
// may succeed. Unclassified errors are not retried.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// TypeOf extracts the error type, ErrorTypeUnknown for foreign errors
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type
func IsType(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}

// IsFatalSetup reports whether err must abort the run before any
// canvas is processed
func IsFatalSetup(err error) bool {
	t := TypeOf(err)
	return t == ErrorTypeSetup || t == ErrorTypeOutOfRange
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
