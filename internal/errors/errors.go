package errors

import (
	"errors"
	"fmt"
)

// CoreError is the structured error type for ragcore.
// It carries enough context for error handling, logging, and operator hints.
type CoreError struct {
	// Code is the unique error code (e.g., "ERR_501_BUILD_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CoreError.
func (e *CoreError) Is(target error) bool {
	if t, ok := target.(*CoreError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CoreError) WithDetail(key, value string) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the operator.
// Returns the error for method chaining.
func (e *CoreError) WithSuggestion(suggestion string) *CoreError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CoreError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CoreError {
	return &CoreError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CoreError from an existing error.
// The error's message becomes the CoreError message.
func Wrap(code string, err error) *CoreError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// BuildFailed creates the error returned when indexing aborts mid-build.
// The previous generation is left untouched by contract.
func BuildFailed(message string, cause error) *CoreError {
	return New(ErrCodeBuildFailed, message, cause).
		WithSuggestion("previous generation is intact; fix the cause and re-run 'ragcore index'")
}

// NotReady creates the error returned when a query arrives while the store
// is not in the READY state.
func NotReady(state string) *CoreError {
	return New(ErrCodeNotReady, fmt.Sprintf("index is not ready (state: %s)", state), nil).
		WithDetail("state", state).
		WithSuggestion("run 'ragcore index' or 'ragcore restore' first")
}

// CorruptArchive creates the error returned on archive checksum mismatch.
func CorruptArchive(version, want, got string) *CoreError {
	return New(ErrCodeCorruptArchive, fmt.Sprintf("archive %s failed checksum verification", version), nil).
		WithDetail("version", version).
		WithDetail("want", want).
		WithDetail("got", got)
}

// ConcurrentOperation creates the error returned when a second writer
// operation is attempted while one is already in flight.
func ConcurrentOperation(op string) *CoreError {
	return New(ErrCodeConcurrentOperation, fmt.Sprintf("another %s is already in progress", op), nil).
		WithDetail("operation", op)
}

// InputError creates a validation error for malformed caller input.
func InputError(message string) *CoreError {
	return New(ErrCodeInvalidInput, message, nil)
}

// RegistryUnavailable creates the retryable error returned when the release
// registry cannot be reached. Local readiness state is unaffected.
func RegistryUnavailable(message string, cause error) *CoreError {
	return New(ErrCodeRegistryUnavailable, message, cause)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetCode extracts the error code from a CoreError anywhere in the chain.
// Returns empty string if no CoreError is present.
func GetCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code string) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
