// Package documents implements the in-memory registry of open flow and
// component documents, including the active (selected tab) pointer.
package documents

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
)

var (
	// ErrDocumentIDRequired is returned when adding a document that was never persisted.
	ErrDocumentIDRequired = errors.New("document id is required")

	// ErrRegistryLoading is returned by derived views while the registry is being populated.
	ErrRegistryLoading = errors.New("document registry is loading")
)

// Registry is the single source of truth for open documents. Every mutation is
// applied as one complete patch under the registry lock, so readers never see
// a partially written document. Reads return deep copies.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	docs    map[string]*models.FlowDocument
	active  string
	loading bool
	emitter *eventbus.Emitter
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. emitter may be nil.
func NewRegistry(logger *slog.Logger, emitter *eventbus.Emitter) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		order:   make([]string, 0),
		docs:    make(map[string]*models.FlowDocument),
		emitter: emitter,
		logger:  logger,
	}
}

// List returns every document in insertion order.
func (r *Registry) List() []*models.FlowDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*models.FlowDocument, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.docs[id].Clone())
	}

	return list
}

// SortKey selects an ordering for ListSorted.
type SortKey string

const (
	SortInsertion SortKey = "insertion"
	SortRecency   SortKey = "recency"
)

// ListSorted returns every document ordered by key.
func (r *Registry) ListSorted(key SortKey) []*models.FlowDocument {
	list := r.List()

	if key == SortRecency {
		slices.SortStableFunc(list, CompareRecency)
	}

	return list
}

// CompareRecency orders documents most recent first. Saved documents (with an
// updated timestamp) always come before never-saved ones regardless of their
// creation time; otherwise the relevant timestamp decides.
func CompareRecency(a, b *models.FlowDocument) int {
	switch {
	case a.UpdatedAt != nil && b.UpdatedAt != nil:
		return b.UpdatedAt.Compare(*a.UpdatedAt)
	case a.UpdatedAt != nil:
		return -1
	case b.UpdatedAt != nil:
		return 1
	}

	switch {
	case a.CreatedAt != nil && b.CreatedAt != nil:
		return b.CreatedAt.Compare(*a.CreatedAt)
	case a.CreatedAt != nil:
		return -1
	case b.CreatedAt != nil:
		return 1
	default:
		return 0
	}
}

// Get returns a copy of the document. A missing id reports false; callers
// treat it as "deselect".
func (r *Registry) Get(id string) (*models.FlowDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, false
	}

	return doc.Clone(), true
}

// Len returns the number of documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// SetActive moves the active pointer. An empty id clears the selection. The id
// is not checked against the registry, which tolerates a route naming a
// document before loading finished; Active filters on read.
func (r *Registry) SetActive(ctx context.Context, id string) {
	r.mu.Lock()
	changed := r.active != id
	r.active = id
	r.mu.Unlock()

	if changed {
		r.emitter.Emit(ctx, id, events.NewDocumentActivated(id))
	}
}

// ActiveID returns the raw active pointer, which may name a document that is not loaded.
func (r *Registry) ActiveID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// Active returns the active document when the pointer names an existing one.
func (r *Registry) Active() (*models.FlowDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == "" {
		return nil, false
	}

	doc, ok := r.docs[r.active]
	if !ok {
		return nil, false
	}

	return doc.Clone(), true
}

// Add stores a copy of doc. Adding an id that already exists replaces the
// document in place, keeping its position.
func (r *Registry) Add(ctx context.Context, doc *models.FlowDocument) error {
	if doc == nil || doc.ID == "" {
		return ErrDocumentIDRequired
	}

	stored := doc.Clone()

	r.mu.Lock()
	if _, exists := r.docs[stored.ID]; !exists {
		r.order = append(r.order, stored.ID)
	}

	r.docs[stored.ID] = stored
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "Document added", "document_id", stored.ID, "name", stored.Name)
	r.emitter.Emit(ctx, stored.ID, events.NewDocumentAdded(stored))

	return nil
}

// Update applies patch to a copy of the document and swaps the result in. An
// unknown id is a no-op that reports false (a lost race with a delete). patch
// runs under the registry lock and must not call back into the registry. A
// panicking patch leaves the stored document unchanged and releases the lock.
func (r *Registry) Update(ctx context.Context, id string, patch func(doc *models.FlowDocument)) bool {
	if !r.apply(id, patch) {
		r.logger.DebugContext(ctx, "Update ignored for missing document", "document_id", id)

		return false
	}

	r.emitter.Emit(ctx, id, events.NewDocumentUpdated(id))

	return true
}

func (r *Registry) apply(id string, patch func(doc *models.FlowDocument)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.docs[id]
	if !ok {
		return false
	}

	next := current.Clone()
	patch(next)
	next.ID = id
	r.docs[id] = next

	return true
}

// Remove deletes the document. Removing the active document clears the active
// pointer; removing any other leaves it untouched.
func (r *Registry) Remove(ctx context.Context, id string) bool {
	r.mu.Lock()

	if _, ok := r.docs[id]; !ok {
		r.mu.Unlock()

		return false
	}

	delete(r.docs, id)
	r.order = slices.DeleteFunc(r.order, func(existing string) bool { return existing == id })

	wasActive := r.active == id
	if wasActive {
		r.active = ""
	}

	r.mu.Unlock()

	r.emitter.Emit(ctx, id, events.NewDocumentRemoved(id, wasActive))

	return true
}

// SetLoading raises or lowers the loading gate.
func (r *Registry) SetLoading(loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loading = loading
}

// Loading reports whether the registry is being populated. While true,
// consumers must not assume List is complete.
func (r *Registry) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loading
}

// Loader provides the initial population of the registry.
type Loader interface {
	Documents(ctx context.Context) ([]*models.FlowDocument, error)
}

// Load replaces the registry content with every persisted document. The
// loading gate is raised for the duration of the call.
func (r *Registry) Load(ctx context.Context, loader Loader) error {
	r.SetLoading(true)
	defer r.SetLoading(false)

	docs, err := loader.Documents(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.order = make([]string, 0, len(docs))
	r.docs = make(map[string]*models.FlowDocument, len(docs))

	for _, doc := range docs {
		if doc == nil || doc.ID == "" {
			continue
		}

		if _, exists := r.docs[doc.ID]; !exists {
			r.order = append(r.order, doc.ID)
		}

		r.docs[doc.ID] = doc.Clone()
	}

	count := len(r.order)
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "Documents loaded", "count", count)

	return nil
}

// ViewOptions selects a page of documents of one class.
type ViewOptions struct {
	IsComponent bool
	PageIndex   int // 1-based
	PageSize    int
}

// ViewResult is one page of a filtered, recency sorted view.
type ViewResult struct {
	Documents  []*models.FlowDocument `json:"documents"`
	TotalCount int                    `json:"total_count"`
	PageIndex  int                    `json:"page_index"`
	PageSize   int                    `json:"page_size"`
}

const defaultPageSize = 10

// View returns a page of documents of the requested class, most recent first.
// It refuses to compute against a partially populated registry.
func (r *Registry) View(opts ViewOptions) (*ViewResult, error) {
	if r.Loading() {
		return nil, ErrRegistryLoading
	}

	opts.PageIndex = max(opts.PageIndex, 1)
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	all := slices.DeleteFunc(r.List(), func(doc *models.FlowDocument) bool {
		return doc.IsComponent != opts.IsComponent
	})
	slices.SortStableFunc(all, CompareRecency)

	start := min((opts.PageIndex-1)*opts.PageSize, len(all))
	end := min(start+opts.PageSize, len(all))

	return &ViewResult{
		Documents:  all[start:end],
		TotalCount: len(all),
		PageIndex:  opts.PageIndex,
		PageSize:   opts.PageSize,
	}, nil
}
