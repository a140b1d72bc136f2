// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentIDRequired indicates an attempt to store a document without an identifier.
	ErrDocumentIDRequired = errors.New("document id is required")

	// ErrCorruptDocument indicates a stored document could not be decoded.
	ErrCorruptDocument = errors.New("stored document is corrupt")
)

// DocumentError wraps document-related errors with additional context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "DocumentByID", "SaveDocument")
	DocumentID string // Document ID if applicable
	Err        error  // Underlying error
}

func (e *DocumentError) Error() string {
	if e.DocumentID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}
