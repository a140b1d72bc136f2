package models

// StoreCollisionEntry is a server reported name/id pair used to detect publish conflicts.
type StoreCollisionEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoreEntry is one row of the user's store listing.
type StoreEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsComponent bool   `json:"is_component"`
}

// TagRef is a store catalog tag.
type TagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoreSubmission is the payload sent to the store on create or update.
type StoreSubmission struct {
	Document *FlowDocument `json:"document"`
	TagIDs   []string      `json:"tags"`
	Public   bool          `json:"public"`
}

// TagIDs resolves selected tag names against the catalog. Unknown names are dropped.
func TagIDs(selected []string, catalog []TagRef) []string {
	ids := make([]string, 0, len(selected))

	for _, name := range selected {
		for _, tag := range catalog {
			if tag.Name == name {
				ids = append(ids, tag.ID)

				break
			}
		}
	}

	return ids
}
