package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested session was not found.
	ErrNotFound = errors.New("not found")

	// ErrNotReady indicates that a session result is not yet available.
	ErrNotReady = errors.New("not ready")

	// ErrNoResults indicates that a search produced no papers.
	ErrNoResults = errors.New("no results")

	// ErrExternalService indicates a failure of an external dependency.
	ErrExternalService = errors.New("external service error")

	// ErrStageFailed indicates an unexpected failure inside a stage.
	ErrStageFailed = errors.New("stage failed")

	// ErrSerialization indicates a malformed upstream payload.
	ErrSerialization = errors.New("serialization error")

	// ErrInvalidInput indicates that request input is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NoResultsError indicates that the fetch stage returned an empty paper
// collection. It is a domain validation failure, fatal to the run, and is
// only raised by stage 1.
type NoResultsError struct {
	Keywords []string
}

// Error implements the error interface. The message is client-facing and
// must stay stable; status handlers surface it verbatim.
func (e *NoResultsError) Error() string {
	return "No papers found for the given keywords"
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NoResultsError) Unwrap() error {
	return ErrNoResults
}

// ExternalServiceError indicates a network, timeout, or non-2xx failure from
// an external dependency (paper source or model API). The model client
// recovers it via fallback; the paper source treats it as fatal.
type ExternalServiceError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Service, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
// The cause remains reachable through errors.As on the concrete type.
func (e *ExternalServiceError) Unwrap() error {
	return ErrExternalService
}

// IsTransient returns true if the error may succeed on retry: rate limiting
// (429), server errors (5xx), or no HTTP response at all (status 0).
func (e *ExternalServiceError) IsTransient() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// StageExecutionError wraps an unexpected internal failure inside a pipeline
// stage with the stage index for diagnostics.
type StageExecutionError struct {
	Stage int
	Cause error
}

// Error implements the error interface.
func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.Stage, StageName(e.Stage), e.Cause)
}

// Unwrap returns the cause so errors.Is can match wrapped sentinels.
func (e *StageExecutionError) Unwrap() error {
	return e.Cause
}

// SerializationError indicates a malformed upstream payload. For paper-search
// parsing the offending record is skipped; elsewhere it is fatal.
type SerializationError struct {
	Source  string
	Message string
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s: malformed payload: %s", e.Source, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *SerializationError) Unwrap() error {
	return ErrSerialization
}

// NewExternalServiceError creates a new ExternalServiceError.
func NewExternalServiceError(service string, statusCode int, message string, cause error) *ExternalServiceError {
	return &ExternalServiceError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
