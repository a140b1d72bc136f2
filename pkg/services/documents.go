package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ArtifactUploader stores a file on the backend on behalf of a flow.
type ArtifactUploader interface {
	UploadArtifact(ctx context.Context, flowID, filename string, content io.Reader) (string, error)
}

// Documents creates, imports, saves and deletes documents, keeping the
// registry and local persistence in step and reporting outcomes to the
// notification center.
type Documents struct {
	persistence   persistence.Persistence
	registry      *documents.Registry
	notifications *notification.Center
	uploader      ArtifactUploader
	validate      *validator.Validate
	now           func() time.Time
	logger        *slog.Logger
}

// NewDocuments creates a new document service. uploader may be nil when file
// fields are not used.
func NewDocuments(
	persistence persistence.Persistence,
	registry *documents.Registry,
	notifications *notification.Center,
	uploader ArtifactUploader,
	validate *validator.Validate,
	logger *slog.Logger,
) *Documents {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Documents{
		persistence:   persistence,
		registry:      registry,
		notifications: notifications,
		uploader:      uploader,
		validate:      validate,
		now:           time.Now,
		logger:        logger,
	}
}

// Create makes a new empty flow or component, persists it and opens it in the registry.
func (s *Documents) Create(ctx context.Context, isComponent bool) (string, error) {
	now := s.now().UTC()
	doc := &models.FlowDocument{
		ID:          uuid.New().String(),
		IsComponent: isComponent,
		CreatedAt:   &now,
		Data:        &models.FlowData{Nodes: []*models.Node{}, Edges: []*models.Edge{}},
	}
	doc.Name = "New " + doc.Kind()

	if err := s.persistence.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to persist new document: %w", err)
	}

	if err := s.registry.Add(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to open new document: %w", err)
	}

	s.logger.InfoContext(ctx, "Document created", "document_id", doc.ID, "is_component", isComponent)

	return doc.ID, nil
}

// Import reads an uploaded JSON document. Anything that is not JSON is refused
// before reading. The imported document always gets a fresh id.
func (s *Documents) Import(ctx context.Context, filename, contentType string, content io.Reader, isComponent bool) (string, error) {
	if !isJSONUpload(filename, contentType) {
		s.notifications.Error(ctx, "Invalid file type", "Please upload a JSON file")

		return "", NewValidationError("Import", "invalid_file_type", "only JSON files can be imported", ErrInvalidFileType)
	}

	var doc models.FlowDocument
	if err := json.NewDecoder(content).Decode(&doc); err != nil {
		s.notifications.Error(ctx, "Error uploading file", err.Error())

		return "", NewValidationError("Import", "invalid_json", err.Error(), ErrInvalidDocument)
	}

	if err := s.validate.Struct(&doc); err != nil {
		s.notifications.Error(ctx, "Error uploading file", validationMessages(err)...)

		return "", NewValidationError("Import", "invalid_document", err.Error(), ErrInvalidDocument)
	}

	now := s.now().UTC()
	doc.ID = uuid.New().String()
	doc.IsComponent = isComponent
	doc.CreatedAt = &now
	doc.UpdatedAt = nil
	doc.StoreLinked = false

	if err := s.persistence.SaveDocument(ctx, &doc); err != nil {
		s.notifications.Error(ctx, "Error uploading file", err.Error())

		return "", fmt.Errorf("failed to persist imported document: %w", err)
	}

	if err := s.registry.Add(ctx, &doc); err != nil {
		return "", fmt.Errorf("failed to open imported document: %w", err)
	}

	s.notifications.Success(ctx, doc.Kind()+" uploaded successfully")
	s.logger.InfoContext(ctx, "Document imported", "document_id", doc.ID, "filename", filename)

	return doc.ID, nil
}

// Save persists the registry copy of a document and marks it saved.
func (s *Documents) Save(ctx context.Context, id string) (*models.FlowDocument, error) {
	doc, ok := s.registry.Get(id)
	if !ok {
		return nil, &ServiceError{Op: "Save", Code: "not_found", Err: ErrDocumentNotFound}
	}

	now := s.now().UTC()
	doc.UpdatedAt = &now

	if err := s.persistence.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save document %s: %w", id, err)
	}

	if err := s.discardIfDeleted(ctx, "Save", id); err != nil {
		return nil, err
	}

	s.registry.Update(ctx, id, func(current *models.FlowDocument) {
		current.UpdatedAt = &now
	})

	return doc, nil
}

// Persist writes the registry copy as is, without marking it saved.
func (s *Documents) Persist(ctx context.Context, id string) error {
	doc, ok := s.registry.Get(id)
	if !ok {
		return &ServiceError{Op: "Persist", Code: "not_found", Err: ErrDocumentNotFound}
	}

	if err := s.persistence.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to persist document %s: %w", id, err)
	}

	return s.discardIfDeleted(ctx, "Persist", id)
}

// discardIfDeleted removes a copy written after Delete took the document out
// of the registry, so a write racing a delete never resurrects it.
func (s *Documents) discardIfDeleted(ctx context.Context, op, id string) error {
	if _, ok := s.registry.Get(id); ok {
		return nil
	}

	if err := s.persistence.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("failed to discard deleted document %s: %w", id, err)
	}

	s.logger.DebugContext(ctx, "Discarded write of deleted document", "document_id", id, "op", op)

	return &ServiceError{Op: op, Code: "not_found", Err: ErrDocumentNotFound}
}

// Delete removes a document from the registry, then from persistence. The
// registry goes first so no save or autosave can write the document back. When
// the persistence delete fails the document is reopened.
func (s *Documents) Delete(ctx context.Context, id string) error {
	doc, open := s.registry.Get(id)
	wasActive := open && s.registry.ActiveID() == id

	if open {
		s.registry.Remove(ctx, id)
	} else {
		s.logger.DebugContext(ctx, "Deleted document was not open", "document_id", id)
	}

	if err := s.persistence.DeleteDocument(ctx, id); err != nil {
		if open {
			if addErr := s.registry.Add(ctx, doc); addErr != nil {
				s.logger.ErrorContext(ctx, "Failed to reopen document after delete failure", "document_id", id, "error", addErr)
			}

			if wasActive {
				s.registry.SetActive(ctx, id)
			}
		}

		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}

// AttachFile uploads a file for a file template field and records the server
// path on the field. The file name must end with one of the field's accepted
// types; a field without types accepts anything.
func (s *Documents) AttachFile(ctx context.Context, ref models.FieldRef, filename string, content io.Reader) error {
	if err := s.validate.Struct(&ref); err != nil {
		return NewValidationError("AttachFile", "invalid_field_ref", err.Error(), ErrInvalidRequest)
	}

	doc, ok := s.registry.Get(ref.DocumentID)
	if !ok {
		return &ServiceError{Op: "AttachFile", Code: "not_found", Err: ErrDocumentNotFound}
	}

	field, err := lookupField(doc, ref)
	if err != nil {
		return err
	}

	if field.Type != models.FieldTypeFile {
		return NewValidationError("AttachFile", "not_file_field", "field "+ref.Field+" is not a file field", ErrNotFileField)
	}

	if !acceptsFile(field.FileTypes, filename) {
		s.notifications.Error(ctx, "Please select a valid file. Only these file types are allowed:", field.FileTypes...)

		return NewValidationError("AttachFile", "invalid_file_type", "file type not allowed", ErrInvalidFileType)
	}

	if s.uploader == nil {
		return errors.New("no artifact uploader configured")
	}

	filePath, err := s.uploader.UploadArtifact(ctx, ref.DocumentID, filename, content)
	if err != nil {
		s.notifications.Error(ctx, "Error uploading file", err.Error())

		return fmt.Errorf("failed to upload %s: %w", filename, err)
	}

	s.registry.Update(ctx, ref.DocumentID, func(current *models.FlowDocument) {
		if node := current.FindNode(ref.NodeID); node != nil {
			if target := node.Data.Node.Field(ref.Field); target != nil {
				target.FilePath = filePath
				target.Value = filename
			}
		}
	})

	return nil
}

func lookupField(doc *models.FlowDocument, ref models.FieldRef) (*models.TemplateField, error) {
	node := doc.FindNode(ref.NodeID)
	if node == nil {
		return nil, &ServiceError{Op: "lookupField", Code: "not_found", Message: "node " + ref.NodeID + " not found", Err: ErrNodeNotFound}
	}

	field := node.Data.Node.Field(ref.Field)
	if field == nil {
		return nil, &ServiceError{Op: "lookupField", Code: "not_found", Message: "field " + ref.Field + " not found", Err: ErrFieldNotFound}
	}

	return field, nil
}

func isJSONUpload(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)

	return err == nil && mediaType == "application/json"
}

func acceptsFile(fileTypes []string, filename string) bool {
	if len(fileTypes) == 0 {
		return true
	}

	for _, fileType := range fileTypes {
		if strings.HasSuffix(filename, fileType) {
			return true
		}
	}

	return false
}

func validationMessages(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s is %s", strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
	}

	return messages
}
