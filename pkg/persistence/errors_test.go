package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		err := persistence.NewDocumentError("DocumentByID", "doc-123", persistence.ErrDocumentNotFound)

		assert.True(t, persistence.IsDocumentNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrDocumentNotFound))
		assert.False(t, errors.Is(err, persistence.ErrCorruptDocument))
	})

	t.Run("wrapped document error still matches", func(t *testing.T) {
		err := fmt.Errorf("loading: %w", persistence.NewDocumentError("DocumentByID", "doc-123", persistence.ErrDocumentNotFound))

		assert.True(t, persistence.IsDocumentNotFound(err))
	})

	t.Run("document error contains context", func(t *testing.T) {
		err := persistence.NewDocumentError("SaveDocument", "doc-123", persistence.ErrDocumentIDRequired)

		assert.Contains(t, err.Error(), "SaveDocument")
		assert.Contains(t, err.Error(), "doc-123")
		assert.Contains(t, err.Error(), "document id is required")
	})

	t.Run("document error without id", func(t *testing.T) {
		err := persistence.NewDocumentError("Documents", "", persistence.ErrCorruptDocument)

		assert.Equal(t, "Documents operation failed: stored document is corrupt", err.Error())
	})
}
