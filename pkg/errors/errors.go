package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error (malformed or empty input)
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypePageDepth indicates pagination beyond the maximum allowed depth
	ErrorTypePageDepth ErrorType = "PAGE_DEPTH_EXCEEDED"

	// ErrorTypeTimeout indicates a caller-specified deadline expired
	ErrorTypeTimeout ErrorType = "TIMEOUT"

	// ErrorTypeDegraded indicates the primary result was produced but a
	// secondary persistence step (event log append) failed
	ErrorTypeDegraded ErrorType = "DEGRADED_PERSISTENCE"

	// ErrorTypeUpstream indicates an upstream collaborator is unreachable
	ErrorTypeUpstream ErrorType = "UPSTREAM_UNAVAILABLE"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from an external service
	ErrorTypeExternal ErrorType = "EXTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInvalidQueryError creates a validation error for malformed query input.
// Client error; retrying the same input will not succeed.
func NewInvalidQueryError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewPageDepthExceededError creates an error for pagination past the
// configured maximum depth. Client error; retry with a smaller offset.
func NewPageDepthExceededError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypePageDepth,
		Message: message,
	}
}

// NewTimeoutError creates an error for an expired caller deadline.
// Partial work is discarded; the caller may retry with backoff.
func NewTimeoutError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTimeout,
		Message: message,
		Err:     err,
	}
}

// NewDegradedPersistenceError creates an error describing a failed event log
// append. It is surfaced as a warning flag on the response, never as a failed
// call.
func NewDegradedPersistenceError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeDegraded,
		Message: message,
		Err:     err,
	}
}

// NewUpstreamUnavailableError creates an error for an unreachable catalog or
// identity collaborator.
func NewUpstreamUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeUpstream,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err is an AppError of the given type anywhere in its
// chain.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsPageDepthExceeded reports whether err is a page depth error
func IsPageDepthExceeded(err error) bool { return IsType(err, ErrorTypePageDepth) }

// IsTimeout reports whether err is a timeout error
func IsTimeout(err error) bool { return IsType(err, ErrorTypeTimeout) }

// IsUpstreamUnavailable reports whether err is an upstream availability error
func IsUpstreamUnavailable(err error) bool { return IsType(err, ErrorTypeUpstream) }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }
