package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// storeEntryFields are the listing fields needed to detect collisions.
var storeEntryFields = []string{"id", "name", "is_component"}

// PublishRequest carries the user's choices for one publish attempt.
type PublishRequest struct {
	Tags   []string `json:"tags"`
	Public bool     `json:"public"`
}

// Snapshot is a point in time view of a session.
type Snapshot struct {
	DocumentID   string                      `json:"document_id"`
	State        State                       `json:"state"`
	LoadingNames bool                        `json:"loading_names"`
	Tags         []models.TagRef             `json:"tags"`
	Conflict     *models.StoreCollisionEntry `json:"conflict,omitempty"`
	LastError    string                      `json:"last_error,omitempty"`
}

// availability is the result of one fetch. Its fields are written before
// ready is closed and never after.
type availability struct {
	ready chan struct{}
	tags  []models.TagRef
	taken []models.StoreCollisionEntry
	err   error
}

func (a *availability) loading() bool {
	select {
	case <-a.ready:
		return false
	default:
		return true
	}
}

// Session is the publish surface of one document. Availability data is
// fetched once when the session opens and reused by every attempt. Only a
// failed fetch is repeated, by the next attempt.
type Session struct {
	owner       *Sessions
	docID       string
	isComponent bool

	availMu sync.Mutex
	avail   *availability

	mu        sync.Mutex
	state     State
	pending   *models.StoreSubmission
	conflict  *models.StoreCollisionEntry
	lastError string
}

func newSession(owner *Sessions, doc *models.FlowDocument) *Session {
	return &Session{
		owner:       owner,
		docID:       doc.ID,
		isComponent: doc.IsComponent,
		state:       StateIdle,
	}
}

// startFetch begins a new availability fetch. With onlyAfterFailure set it
// does nothing unless the previous fetch finished with an error.
func (s *Session) startFetch(ctx context.Context, onlyAfterFailure bool) {
	s.availMu.Lock()
	defer s.availMu.Unlock()

	if onlyAfterFailure && (s.avail == nil || s.avail.loading() || s.avail.err == nil) {
		return
	}

	a := &availability{ready: make(chan struct{})}
	s.avail = a

	go s.fetch(context.WithoutCancel(ctx), a)
}

func (s *Session) currentAvailability() *availability {
	s.availMu.Lock()
	defer s.availMu.Unlock()

	return s.avail
}

// fetch loads the tag catalog and the user's store entries concurrently and
// keeps the entries of the session's document class.
func (s *Session) fetch(ctx context.Context, a *availability) {
	defer close(a.ready)

	ctx, span := otelhelper.StartSpan(ctx, s.owner.tracer, "store.availability",
		attribute.String(otelhelper.DocumentIDKey, s.docID),
	)
	defer span.End()

	var (
		tags    []models.TagRef
		entries []models.StoreEntry
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var err error

		tags, err = s.owner.api.FetchStoreTags(groupCtx)
		if err != nil {
			return fmt.Errorf("failed to fetch store tags: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		var err error

		entries, err = s.owner.api.FetchStoreEntries(groupCtx, client.StoreFilter{
			Fields:       storeEntryFields,
			FilterByUser: true,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch store entries: %w", err)
		}

		return nil
	})

	if err := group.Wait(); err != nil {
		otelhelper.SetError(span, err)
		a.err = err
		s.owner.logger.ErrorContext(ctx, "Store availability fetch failed", "document_id", s.docID, "error", err)
		s.owner.notifications.Error(ctx, TitleLoadError, detail(err))

		return
	}

	taken := make([]models.StoreCollisionEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsComponent == s.isComponent {
			taken = append(taken, models.StoreCollisionEntry{ID: entry.ID, Name: entry.Name})
		}
	}

	a.tags = tags
	a.taken = taken
}

// LoadingNames reports whether the availability fetch is still running. No
// attempt submits while it is true.
func (s *Session) LoadingNames() bool {
	return s.currentAvailability().loading()
}

func (s *Session) awaitAvailability(ctx context.Context) (*availability, error) {
	a := s.currentAvailability()

	select {
	case <-a.ready:
		return a, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *availability) collision(name string) *models.StoreCollisionEntry {
	for _, entry := range a.taken {
		if entry.Name == name {
			found := entry

			return &found
		}
	}

	return nil
}

// CheckAvailability waits for the availability data and returns the store
// entry whose name equals the document's current name, or nil when the name
// is free.
func (s *Session) CheckAvailability(ctx context.Context) (*models.StoreCollisionEntry, error) {
	a, err := s.awaitAvailability(ctx)
	if err != nil {
		return nil, err
	}

	doc, ok := s.owner.registry.Get(s.docID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, s.docID)
	}

	return a.collision(doc.Name), nil
}

// Tags returns the fetched tag catalog, empty while loading or after a failed fetch.
func (s *Session) Tags() []models.TagRef {
	a := s.currentAvailability()
	if a.loading() || a.err != nil {
		return []models.TagRef{}
	}

	return append([]models.TagRef(nil), a.tags...)
}

// State returns the current attempt state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Snapshot returns the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		DocumentID:   s.docID,
		State:        s.state,
		LoadingNames: s.LoadingNames(),
		Tags:         s.Tags(),
		LastError:    s.lastError,
	}

	if s.conflict != nil {
		conflict := *s.conflict
		snapshot.Conflict = &conflict
	}

	return snapshot
}

func (s *Session) transition(ctx context.Context, next State) {
	s.mu.Lock()
	previous := s.state
	s.state = next
	s.mu.Unlock()

	s.owner.logger.DebugContext(ctx, "Publish state changed", "document_id", s.docID, "from", previous, "to", next)
}

// Publish starts an attempt. The document is redacted once, then the attempt
// waits for availability data. A free name is submitted as a new entry; a
// taken name parks the attempt in StateAwaitingConfirmation until
// ConfirmReplace or Cancel. An attempt started after a failed availability
// fetch fetches again.
func (s *Session) Publish(ctx context.Context, req PublishRequest) (State, error) {
	s.mu.Lock()
	if s.state.Busy() || s.state == StateAwaitingConfirmation {
		current := s.state
		s.mu.Unlock()

		return current, ErrAttemptInProgress
	}

	s.state = StatePreparing
	s.pending = nil
	s.conflict = nil
	s.lastError = ""
	s.mu.Unlock()

	s.startFetch(ctx, true)

	doc, ok := s.owner.registry.Get(s.docID)
	if !ok {
		s.transition(ctx, StateIdle)

		return StateIdle, fmt.Errorf("%w: %s", ErrUnknownDocument, s.docID)
	}

	if err := s.owner.validate.Struct(doc); err != nil {
		s.transition(ctx, StateIdle)

		return StateIdle, fmt.Errorf("document cannot be published: %w", err)
	}

	prepared := Redact(doc)
	if s.owner.appVersion != "" {
		prepared.LastTestedVersion = s.owner.appVersion
	}

	s.transition(ctx, StateCheckingAvailability)

	avail, err := s.awaitAvailability(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.transition(ctx, StateIdle)

			return StateIdle, err
		}

		s.fail(err)

		return StateFailed, err
	}

	submission := models.StoreSubmission{
		Document: prepared,
		TagIDs:   models.TagIDs(req.Tags, avail.tags),
		Public:   req.Public,
	}

	if conflict := avail.collision(prepared.Name); conflict != nil {
		s.transition(ctx, StateConflict)

		s.mu.Lock()
		s.pending = &submission
		s.conflict = conflict
		s.state = StateAwaitingConfirmation
		s.mu.Unlock()

		s.owner.logger.InfoContext(ctx, "Store name taken, awaiting confirmation",
			"document_id", s.docID, "name", prepared.Name, "remote_id", conflict.ID)

		return StateAwaitingConfirmation, nil
	}

	s.transition(ctx, StateAvailable)

	return s.submit(ctx, submission, "")
}

// ConfirmReplace submits the parked attempt as an update of the colliding entry.
func (s *Session) ConfirmReplace(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.state != StateAwaitingConfirmation || s.pending == nil || s.conflict == nil {
		current := s.state
		s.mu.Unlock()

		return current, ErrNotAwaitingConfirmation
	}

	submission := *s.pending
	remoteID := s.conflict.ID
	s.state = StateSubmitting
	s.mu.Unlock()

	return s.submit(ctx, submission, remoteID)
}

// Cancel abandons a parked or finished attempt without any network effect or
// notification.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Busy() {
		return ErrAttemptInProgress
	}

	s.state = StateIdle
	s.pending = nil
	s.conflict = nil

	return nil
}

// submit sends the submission. An empty remoteID creates a new entry. The call
// is not cancelled with ctx: a completed submission always applies its effects.
func (s *Session) submit(ctx context.Context, submission models.StoreSubmission, remoteID string) (State, error) {
	s.transition(ctx, StateSubmitting)

	ctx = context.WithoutCancel(ctx)
	doc := submission.Document

	ctx, span := otelhelper.StartSpan(ctx, s.owner.tracer, "store.submit",
		attribute.String(otelhelper.DocumentIDKey, doc.ID),
		attribute.String(otelhelper.DocumentKindKey, doc.Kind()),
		attribute.String(otelhelper.RemoteIDKey, remoteID),
	)
	defer span.End()

	var err error
	if remoteID == "" {
		err = s.owner.api.CreateStoreEntry(ctx, submission)
	} else {
		err = s.owner.api.UpdateStoreEntry(ctx, remoteID, submission)
	}

	if err != nil {
		otelhelper.SetError(span, err)
		otelhelper.SetPublishState(span, string(StateFailed))
		s.owner.notifications.Error(ctx, shareErrorTitle(doc), detail(err))
		s.fail(err)

		return StateFailed, err
	}

	if !doc.IsComponent {
		s.owner.registry.Update(ctx, s.docID, func(current *models.FlowDocument) {
			current.StoreLinked = true
		})

		if s.owner.saver != nil {
			if _, saveErr := s.owner.saver.Save(ctx, s.docID); saveErr != nil {
				s.owner.logger.ErrorContext(ctx, "Failed to save published flow", "document_id", s.docID, "error", saveErr)
			}
		}
	}

	s.owner.notifications.Success(ctx, sharedTitle(doc))
	s.owner.emitter.Emit(ctx, s.docID, events.NewStoreEntryPublished(doc, remoteID))

	s.mu.Lock()
	s.state = StatePublished
	s.pending = nil
	s.mu.Unlock()

	otelhelper.SetPublishState(span, string(StatePublished))

	s.owner.logger.InfoContext(ctx, "Document published", "document_id", s.docID, "replaced", remoteID != "")

	return StatePublished, nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateFailed
	s.pending = nil
	s.lastError = detail(err)
}

// Export writes the redacted document. It ignores attempt state and availability.
func (s *Session) Export(w io.Writer) error {
	doc, ok := s.owner.registry.Get(s.docID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDocument, s.docID)
	}

	return Export(w, doc)
}

// detail extracts the user facing message of an error.
func detail(err error) string {
	if apiErr, ok := client.IsAPIError(err); ok {
		return apiErr.Detail
	}

	return err.Error()
}
