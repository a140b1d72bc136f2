// Package redis provides Redis persistence for flow and component documents.
// Each document is a JSON string under its own key; an index set tracks ids.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "flowstudio"
	indexSuffix   = "documents"
)

// Persistence implements persistence.Persistence on top of Redis.
type Persistence struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewPersistence connects to the Redis server described by url
// (redis://[user:password@]host:port/db) and verifies it responds.
func NewPersistence(ctx context.Context, logger *slog.Logger, url string) (*Persistence, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client, defaultPrefix), nil
}

// NewPersistenceWithClient wraps an existing client. Keys are namespaced by prefix.
func NewPersistenceWithClient(logger *slog.Logger, client redis.UniversalClient, prefix string) *Persistence {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Persistence{client: client, prefix: prefix, logger: logger}
}

func (p *Persistence) documentKey(id string) string {
	return p.prefix + ":document:" + id
}

func (p *Persistence) indexKey() string {
	return p.prefix + ":" + indexSuffix
}

// Documents returns every stored document ordered by creation time. Index
// entries whose key has vanished are skipped.
func (p *Persistence) Documents(ctx context.Context) ([]*models.FlowDocument, error) {
	ids, err := p.client.SMembers(ctx, p.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list document ids: %w", err)
	}

	docs := make([]*models.FlowDocument, 0, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = p.documentKey(id)
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			p.logger.WarnContext(ctx, "Document indexed but missing", "document_id", ids[i])

			continue
		}

		doc, err := decode(ids[i], raw)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	persistence.SortByCreation(docs)

	return docs, nil
}

// DocumentByID returns a stored document or a not-found error.
func (p *Persistence) DocumentByID(ctx context.Context, id string) (*models.FlowDocument, error) {
	raw, err := p.client.Get(ctx, p.documentKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewDocumentError("DocumentByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to fetch document %s: %w", id, err)
	}

	return decode(id, raw)
}

// SaveDocument writes the document and its index entry in one transaction.
func (p *Persistence) SaveDocument(ctx context.Context, doc *models.FlowDocument) error {
	if doc == nil || doc.ID == "" {
		return persistence.NewDocumentError("SaveDocument", "", persistence.ErrDocumentIDRequired)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, p.documentKey(doc.ID), data, 0)
		pipe.SAdd(ctx, p.indexKey(), doc.ID)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	return nil
}

// DeleteDocument removes a document. Deleting a missing document is not an error.
func (p *Persistence) DeleteDocument(ctx context.Context, id string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.documentKey(id))
		pipe.SRem(ctx, p.indexKey(), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func decode(id, raw string) (*models.FlowDocument, error) {
	var doc models.FlowDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, persistence.NewDocumentError("DocumentByID", id, fmt.Errorf("%w: %w", persistence.ErrCorruptDocument, err))
	}

	return &doc, nil
}
