package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

const documentsDir = "documents"

// DocumentRepository stores one JSON file per document under root/documents.
type DocumentRepository struct {
	root string
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{root: root}
}

func (dr *DocumentRepository) dir() string {
	return filepath.Join(dr.root, documentsDir)
}

func (dr *DocumentRepository) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}

	return filepath.Join(dr.dir(), id+".json"), nil
}

// GetAll loads every stored document ordered by creation time.
func (dr *DocumentRepository) GetAll(ctx context.Context) ([]*models.FlowDocument, error) {
	jsonFiles, err := fs.Glob(os.DirFS(dr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list document files: %w", err)
	}

	docs := make([]*models.FlowDocument, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		doc, err := dr.GetByID(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	persistence.SortByCreation(docs)

	return docs, nil
}

// GetByID reads one document from disk.
func (dr *DocumentRepository) GetByID(_ context.Context, id string) (*models.FlowDocument, error) {
	filePath, err := dr.path(id)
	if err != nil {
		return nil, persistence.NewDocumentError("DocumentByID", id, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}

	var doc models.FlowDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, persistence.NewDocumentError("DocumentByID", id, fmt.Errorf("%w: %w", persistence.ErrCorruptDocument, err))
	}

	if doc.ID == "" {
		doc.ID = id
	}

	return &doc, nil
}

// Save writes the document atomically by renaming a temporary file into place.
func (dr *DocumentRepository) Save(_ context.Context, doc *models.FlowDocument) error {
	if doc == nil || doc.ID == "" {
		return persistence.NewDocumentError("SaveDocument", "", persistence.ErrDocumentIDRequired)
	}

	filePath, err := dr.path(doc.ID)
	if err != nil {
		return persistence.NewDocumentError("SaveDocument", doc.ID, err)
	}

	if err := os.MkdirAll(dr.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc.ID, err)
	}

	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("failed to replace document %s: %w", doc.ID, err)
	}

	return nil
}

// Delete removes a document by its ID. Deleting a missing document is not an error.
func (dr *DocumentRepository) Delete(_ context.Context, id string) error {
	filePath, err := dr.path(id)
	if err != nil {
		return persistence.NewDocumentError("DeleteDocument", id, err)
	}

	err = os.Remove(filePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}
