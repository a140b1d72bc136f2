package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	// Test with regular path
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	p := NewPersistence("./test-data")
	err := p.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
}

func TestPersistence_SaveDocument(t *testing.T) {
	testDir := t.TempDir()
	p := NewPersistence(testDir)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := &models.FlowDocument{
		ID:          "doc-1",
		Name:        "Basic Prompting",
		Description: "A flow",
		CreatedAt:   &created,
		Data: &models.FlowData{
			Nodes: []*models.Node{{ID: "node-1", Type: "genericNode"}},
		},
	}

	require.NoError(t, p.SaveDocument(t.Context(), doc))
	assert.FileExists(t, filepath.Join(testDir, "documents", "doc-1.json"))

	got, err := p.DocumentByID(t.Context(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Basic Prompting", got.Name)
	assert.Equal(t, created, *got.CreatedAt)
	require.NotNil(t, got.Data)
	assert.Equal(t, "node-1", got.Data.Nodes[0].ID)
}

func TestPersistence_SaveDocument_RequiresID(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.SaveDocument(t.Context(), &models.FlowDocument{Name: "draft"})
	assert.ErrorIs(t, err, persistence.ErrDocumentIDRequired)
}

func TestPersistence_SaveDocument_RejectsPathIDs(t *testing.T) {
	p := NewPersistence(t.TempDir())

	err := p.SaveDocument(t.Context(), &models.FlowDocument{ID: "../escape", Name: "x"})
	assert.Error(t, err)
}

func TestPersistence_DocumentByID_NotFound(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.DocumentByID(t.Context(), "missing")
	assert.True(t, persistence.IsDocumentNotFound(err))
}

func TestPersistence_DocumentByID_Corrupt(t *testing.T) {
	testDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "documents"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "documents", "bad.json"), []byte("{"), 0600))

	p := NewPersistence(testDir)

	_, err := p.DocumentByID(t.Context(), "bad")
	assert.ErrorIs(t, err, persistence.ErrCorruptDocument)
}

func TestPersistence_Documents_OrderedByCreation(t *testing.T) {
	p := NewPersistence(t.TempDir())

	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "b", Name: "B", CreatedAt: &newer}))
	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "a", Name: "A", CreatedAt: &older}))
	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "c", Name: "C", CreatedAt: &newer}))

	docs, err := p.Documents(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestPersistence_Documents_EmptyRoot(t *testing.T) {
	p := NewPersistence(filepath.Join(t.TempDir(), "fresh"))

	docs, err := p.Documents(t.Context())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestPersistence_DeleteDocument(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "gone", Name: "Gone"}))
	require.NoError(t, p.DeleteDocument(t.Context(), "gone"))

	_, err := p.DocumentByID(t.Context(), "gone")
	assert.True(t, persistence.IsDocumentNotFound(err))

	// deleting twice is fine
	assert.NoError(t, p.DeleteDocument(t.Context(), "gone"))
}

func TestPersistence_SaveDocument_Overwrites(t *testing.T) {
	p := NewPersistence(t.TempDir())

	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "doc", Name: "First"}))
	require.NoError(t, p.SaveDocument(t.Context(), &models.FlowDocument{ID: "doc", Name: "Second"}))

	docs, err := p.Documents(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Second", docs[0].Name)
}

func TestPersistence_HealthCheckRejectsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	assert.Error(t, NewPersistence(path).HealthCheck(t.Context()))
}
