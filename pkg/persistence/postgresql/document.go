package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
)

// DocumentRepository handles document-related database operations.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

const selectDocuments = `
		SELECT
			id
		  , name
		  , description
		  , is_component
		  , data
		  , last_tested_version
		  , store_linked
		  , date_created
		  , updated_at
		FROM documents
`

type scanner interface {
	Scan(dest ...any) error
}

// GetAll returns all documents ordered by creation time.
func (r *DocumentRepository) GetAll(ctx context.Context) ([]*models.FlowDocument, error) {
	rows, err := r.db.QueryContext(ctx, selectDocuments+" ORDER BY date_created ASC NULLS FIRST, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func(ctx context.Context, r *DocumentRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	docs := make([]*models.FlowDocument, 0)

	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

// GetByID returns one document or a not-found error.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.FlowDocument, error) {
	row := r.db.QueryRowContext(ctx, selectDocuments+" WHERE id = $1", id)

	doc, err := r.scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return doc, nil
}

// Save inserts or replaces a document.
func (r *DocumentRepository) Save(ctx context.Context, doc *models.FlowDocument) error {
	if doc == nil || doc.ID == "" {
		return persistence.NewDocumentError("SaveDocument", "", persistence.ErrDocumentIDRequired)
	}

	var data []byte

	if doc.Data != nil {
		var err error

		data, err = json.Marshal(doc.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal document data: %w", err)
		}
	}

	query := `
		INSERT INTO documents (
			id, name, description, is_component, data, last_tested_version, store_linked, date_created, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , is_component = EXCLUDED.is_component
		  , data = EXCLUDED.data
		  , last_tested_version = EXCLUDED.last_tested_version
		  , store_linked = EXCLUDED.store_linked
		  , date_created = EXCLUDED.date_created
		  , updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Name,
		doc.Description,
		doc.IsComponent,
		nullableJSON(data),
		sql.NullString{String: doc.LastTestedVersion, Valid: doc.LastTestedVersion != ""},
		doc.StoreLinked,
		nullableTime(doc.CreatedAt),
		nullableTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	return nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}

func (r *DocumentRepository) scanDocument(row scanner) (*models.FlowDocument, error) {
	var (
		doc               models.FlowDocument
		data              []byte
		lastTestedVersion sql.NullString
		created, updated  sql.NullTime
	)

	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Description,
		&doc.IsComponent,
		&data,
		&lastTestedVersion,
		&doc.StoreLinked,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		doc.Data = &models.FlowData{}
		if err := json.Unmarshal(data, doc.Data); err != nil {
			return nil, persistence.NewDocumentError("DocumentByID", doc.ID, fmt.Errorf("%w: %w", persistence.ErrCorruptDocument, err))
		}
	}

	doc.LastTestedVersion = lastTestedVersion.String
	doc.CreatedAt = timePtr(created)
	doc.UpdatedAt = timePtr(updated)

	return &doc, nil
}

func nullableJSON(data []byte) any {
	if data == nil {
		return nil
	}

	return string(data)
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	value := t.Time.UTC()

	return &value
}
