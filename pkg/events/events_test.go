package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEntryPublished_ReplacedFlag(t *testing.T) {
	doc := &models.FlowDocument{ID: "doc-1", Name: "X", IsComponent: true}

	created := NewStoreEntryPublished(doc, "")
	assert.False(t, created.Replaced)
	assert.Equal(t, StoreEntryPublishedEvent, created.GetType())

	replaced := NewStoreEntryPublished(doc, "r1")
	assert.True(t, replaced.Replaced)
	assert.Equal(t, "r1", replaced.RemoteID)
}

func TestNotificationPushed_JSONCarriesItem(t *testing.T) {
	event := NewNotificationPushed(models.NotificationItem{
		ID:    "01H",
		Kind:  models.NotificationError,
		Title: "There is an error in your imports",
		List:  []string{"X not found"},
	})

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"notification.pushed"`)
	assert.Contains(t, string(data), `"title":"There is an error in your imports"`)
	assert.NotEmpty(t, event.ID)
}

func TestDocumentRemoved_GetType(t *testing.T) {
	event := NewDocumentRemoved("doc-1", true)

	assert.Equal(t, DocumentRemovedEvent, event.GetType())
	assert.True(t, event.WasActive)
}
