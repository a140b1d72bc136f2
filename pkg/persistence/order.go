package persistence

import (
	"cmp"
	"slices"
	"time"

	"github.com/dukex/flowstudio/pkg/models"
)

// SortByCreation orders documents oldest first, breaking ties by id, so every
// backend loads the registry in the same order.
func SortByCreation(docs []*models.FlowDocument) {
	slices.SortStableFunc(docs, func(a, b *models.FlowDocument) int {
		return cmp.Or(
			createdAt(a).Compare(createdAt(b)),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

func createdAt(doc *models.FlowDocument) time.Time {
	if doc.CreatedAt == nil {
		return time.Time{}
	}

	return *doc.CreatedAt
}
