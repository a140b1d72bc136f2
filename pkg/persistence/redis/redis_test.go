package redis_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	redisPersistence "github.com/dukex/flowstudio/pkg/persistence/redis"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisContainer testcontainers.Container

func setupTestRedis(t *testing.T) (*redisPersistence.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if redisContainer == nil || !redisContainer.IsRunning() {
		var err error

		redisContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		require.NoError(t, err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	p, err := redisPersistence.NewPersistence(ctx, slog.New(slog.DiscardHandler), fmt.Sprintf("redis://%s/0", endpoint))
	require.NoError(t, err)

	t.Cleanup(func() {
		docs, err := p.Documents(ctx)
		require.NoError(t, err)

		for _, doc := range docs {
			require.NoError(t, p.DeleteDocument(ctx, doc.ID))
		}

		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestRedisPersistence_HealthCheck(t *testing.T) {
	p, ctx := setupTestRedis(t)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestRedisPersistence_SaveAndRetrieve(t *testing.T) {
	p, ctx := setupTestRedis(t)

	doc := &models.FlowDocument{ID: uuid.NewString(), Name: "Memory Chatbot", IsComponent: true}
	require.NoError(t, p.SaveDocument(ctx, doc))

	got, err := p.DocumentByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Memory Chatbot", got.Name)
	assert.True(t, got.IsComponent)

	_, err = p.DocumentByID(ctx, uuid.NewString())
	assert.True(t, persistence.IsDocumentNotFound(err))
}

func TestRedisPersistence_DocumentsOrderAndDelete(t *testing.T) {
	p, ctx := setupTestRedis(t)

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	require.NoError(t, p.SaveDocument(ctx, &models.FlowDocument{ID: "b", Name: "B", CreatedAt: &newer}))
	require.NoError(t, p.SaveDocument(ctx, &models.FlowDocument{ID: "a", Name: "A", CreatedAt: &older}))

	docs, err := p.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	require.NoError(t, p.DeleteDocument(ctx, "a"))

	docs, err = p.Documents(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)
}

func TestRedisPersistence_SaveRequiresID(t *testing.T) {
	p, ctx := setupTestRedis(t)

	err := p.SaveDocument(ctx, &models.FlowDocument{Name: "draft"})
	assert.ErrorIs(t, err, persistence.ErrDocumentIDRequired)
}
