// Package persistence provides the local storage abstraction for flow and component documents.
package persistence

import (
	"context"

	"github.com/dukex/flowstudio/pkg/models"
)

// Persistence stores documents independently of store publishing. Documents
// returns every stored document and doubles as the registry's initial loader.
type Persistence interface {
	Documents(ctx context.Context) ([]*models.FlowDocument, error)
	SaveDocument(ctx context.Context, doc *models.FlowDocument) error
	DocumentByID(ctx context.Context, id string) (*models.FlowDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
