// Package file stores documents as one JSON file each under a root directory.
// It is the default backend of a single user studio.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

var _ persistence.Persistence = (*Persistence)(nil)

// Persistence is the file system backend.
type Persistence struct {
	root         string
	documentRepo *DocumentRepository
}

// NewPersistence accepts a plain directory or a file:// URL.
func NewPersistence(root string) persistence.Persistence {
	dir := strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:         dir,
		documentRepo: NewDocumentRepository(dir),
	}
}

// Documents returns every stored document ordered by creation time.
func (fp *Persistence) Documents(ctx context.Context) ([]*models.FlowDocument, error) {
	return fp.documentRepo.GetAll(ctx)
}

// SaveDocument creates or replaces a document.
func (fp *Persistence) SaveDocument(ctx context.Context, doc *models.FlowDocument) error {
	return fp.documentRepo.Save(ctx, doc)
}

func (fp *Persistence) DocumentByID(ctx context.Context, id string) (*models.FlowDocument, error) {
	return fp.documentRepo.GetByID(ctx, id)
}

func (fp *Persistence) DeleteDocument(ctx context.Context, id string) error {
	return fp.documentRepo.Delete(ctx, id)
}

// HealthCheck requires the root to be an existing directory. The documents
// subdirectory is created lazily on first save.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("document root %s: %w", fp.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("document root %s is not a directory", fp.root)
	}

	return nil
}

func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
