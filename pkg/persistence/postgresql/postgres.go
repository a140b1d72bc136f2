// Package postgresql provides PostgreSQL persistence for flow and component documents.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	documentRepo *DocumentRepository
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		documentRepo: NewDocumentRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Documents returns all documents from the database.
func (p *Persistence) Documents(ctx context.Context) ([]*models.FlowDocument, error) {
	return p.documentRepo.GetAll(ctx)
}

// DocumentByID returns a document by its ID.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.FlowDocument, error) {
	return p.documentRepo.GetByID(ctx, id)
}

// SaveDocument upserts a document.
func (p *Persistence) SaveDocument(ctx context.Context, doc *models.FlowDocument) error {
	return p.documentRepo.Save(ctx, doc)
}

// DeleteDocument removes a document by its ID.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	return p.documentRepo.Delete(ctx, id)
}
