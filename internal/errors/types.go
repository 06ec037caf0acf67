package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeTransientQuery ErrorType = "transient_query"
	ErrorTypeParse          ErrorType = "parse"
	ErrorTypeCredential     ErrorType = "credential"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeConfiguration  ErrorType = "configuration"
	ErrorTypeTelemetry      ErrorType = "telemetry"
	ErrorTypeInternal       ErrorType = "internal"
)

// ForwarderError is the base error type for all application errors
type ForwarderError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *ForwarderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *ForwarderError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *ForwarderError) WithContext(key string, value any) *ForwarderError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a new ForwarderError
func New(errorType ErrorType, message string) *ForwarderError {
	return &ForwarderError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errorType ErrorType, message string) *ForwarderError {
	return &ForwarderError{
		Type:    errorType,
		Message: message,
		Cause:   err,
		Context: make(map[string]any),
	}
}

// TransientQuery creates a retryable query error. It covers connection
// failures, timeouts and non-success status codes.
func TransientQuery(message string, cause error) *ForwarderError {
	return Wrap(cause, ErrorTypeTransientQuery, message)
}

// Parse creates an error for a successful response whose body could not be decoded
func Parse(message string, cause error) *ForwarderError {
	return Wrap(cause, ErrorTypeParse, message)
}

// Credential creates a token acquisition error
func Credential(cause error) *ForwarderError {
	return Wrap(cause, ErrorTypeCredential, "failed to acquire bearer token")
}

// Validation creates a validation error
func Validation(message string) *ForwarderError {
	return New(ErrorTypeValidation, message)
}

// Configuration creates a configuration error
func Configuration(message string) *ForwarderError {
	return New(ErrorTypeConfiguration, message)
}

// Telemetry creates a telemetry sink error
func Telemetry(sink string, err error) *ForwarderError {
	return Wrap(err, ErrorTypeTelemetry, fmt.Sprintf("telemetry sink %s failed", sink))
}

// Internal creates an internal error
func Internal(message string) *ForwarderError {
	return New(ErrorTypeInternal, message)
}

// TypeOf returns the ErrorType of the first ForwarderError in err's chain,
// or an empty ErrorType when there is none.
func TypeOf(err error) ErrorType {
	var fe *ForwarderError
	if stderrors.As(err, &fe) {
		return fe.Type
	}
	return ""
}

// IsType reports whether err's chain carries a ForwarderError of the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsTransient reports whether err is retryable by the query retrier
func IsTransient(err error) bool {
	return IsType(err, ErrorTypeTransientQuery)
}
