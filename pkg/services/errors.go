// Package services provides the document service and its standardized error types.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrNotFileField     = errors.New("field does not accept files")
	ErrDocumentNil      = errors.New("document cannot be nil")
	ErrDocumentNotFound = errors.New("document not open")
	ErrNodeNotFound     = errors.New("node not found")
	ErrFieldNotFound    = errors.New("field not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidFileType) ||
		errors.Is(err, ErrInvalidDocument) ||
		errors.Is(err, ErrNotFileField) ||
		errors.Is(err, ErrDocumentNil)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrFieldNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
