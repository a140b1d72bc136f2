package store

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"

	"github.com/dukex/flowstudio/pkg/models"
)

var secretKeyPattern = regexp.MustCompile(`(?i)api[_-]?key|secret|token`)

// IsSecretField reports whether a template field holds a credential: either it
// is a password field or its key looks like one.
func IsSecretField(key string, field *models.TemplateField) bool {
	return field.Password || secretKeyPattern.MatchString(key)
}

// Redact returns a copy of doc with credential values and uploaded file
// references removed. doc is not modified.
func Redact(doc *models.FlowDocument) *models.FlowDocument {
	redacted := doc.Clone()

	redacted.Fields(func(_ *models.Node, key string, field *models.TemplateField) {
		if IsSecretField(key, field) {
			field.Value = nil
		}

		if field.Type == models.FieldTypeFile {
			field.Value = nil
			field.FilePath = ""
		}
	})

	return redacted
}

// Export writes the redacted document as an indented JSON artifact.
func Export(w io.Writer, doc *models.FlowDocument) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(Redact(doc)); err != nil {
		return fmt.Errorf("failed to export document %s: %w", doc.ID, err)
	}

	return nil
}
