// Package store coordinates publishing documents to the remote store: secret
// redaction, name availability, confirm-to-replace and submission.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowstudio/pkg/client"
	"github.com/dukex/flowstudio/pkg/documents"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/dukex/flowstudio/pkg/notification"
	"github.com/dukex/flowstudio/pkg/otelhelper"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrUnknownDocument is returned when a session targets a document that is not open.
	ErrUnknownDocument = errors.New("document not open")

	// ErrAttemptInProgress is returned when a running attempt would be restarted or cancelled.
	ErrAttemptInProgress = errors.New("publish attempt in progress")

	// ErrNotAwaitingConfirmation is returned by ConfirmReplace outside of a conflict.
	ErrNotAwaitingConfirmation = errors.New("publish attempt is not awaiting confirmation")
)

// Notification titles.
const (
	TitleLoadError           = "Error loading store data"
	TitleFlowShared          = "Flow shared successfully!"
	TitleComponentShared     = "Component shared successfully!"
	TitleFlowShareError      = "Error sharing flow"
	TitleComponentShareError = "Error sharing component"
)

func sharedTitle(doc *models.FlowDocument) string {
	if doc.IsComponent {
		return TitleComponentShared
	}

	return TitleFlowShared
}

func shareErrorTitle(doc *models.FlowDocument) string {
	if doc.IsComponent {
		return TitleComponentShareError
	}

	return TitleFlowShareError
}

// API is the part of the backend the coordinator talks to.
type API interface {
	FetchStoreTags(ctx context.Context) ([]models.TagRef, error)
	FetchStoreEntries(ctx context.Context, filter client.StoreFilter) ([]models.StoreEntry, error)
	CreateStoreEntry(ctx context.Context, submission models.StoreSubmission) error
	UpdateStoreEntry(ctx context.Context, remoteID string, submission models.StoreSubmission) error
}

// DocumentSaver persists a registry document and marks it saved.
type DocumentSaver interface {
	Save(ctx context.Context, id string) (*models.FlowDocument, error)
}

// Sessions owns at most one publish session per document.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session

	api           API
	registry      *documents.Registry
	notifications *notification.Center
	saver         DocumentSaver
	validate      *validator.Validate
	emitter       *eventbus.Emitter
	tracer        trace.Tracer
	appVersion    string
	logger        *slog.Logger
}

// Option configures Sessions.
type Option func(*Sessions)

// WithAppVersion sets the version stamped as last_tested_version on published documents.
func WithAppVersion(version string) Option {
	return func(s *Sessions) {
		s.appVersion = version
	}
}

// WithEmitter publishes store events on the change feed.
func WithEmitter(emitter *eventbus.Emitter) Option {
	return func(s *Sessions) {
		s.emitter = emitter
	}
}

// WithTracer records spans for availability fetches and submissions.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Sessions) {
		s.tracer = tracer
	}
}

// NewSessions creates the publish coordinator.
func NewSessions(
	api API,
	registry *documents.Registry,
	notifications *notification.Center,
	saver DocumentSaver,
	logger *slog.Logger,
	opts ...Option,
) *Sessions {
	sessions := &Sessions{
		sessions:      make(map[string]*Session),
		api:           api,
		registry:      registry,
		notifications: notifications,
		saver:         saver,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		tracer:        otelhelper.NoopTracer(),
		logger:        logger,
	}

	for _, opt := range opts {
		opt(sessions)
	}

	return sessions
}

// Open returns the session for docID, creating it and starting its
// availability fetch on first use. The fetch runs once per session and is not
// tied to ctx cancellation.
func (s *Sessions) Open(ctx context.Context, docID string) (*Session, error) {
	doc, ok := s.registry.Get(docID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, docID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, exists := s.sessions[docID]; exists {
		return session, nil
	}

	session := newSession(s, doc)
	s.sessions[docID] = session

	session.startFetch(ctx, false)

	s.logger.DebugContext(ctx, "Publish session opened", "document_id", docID, "is_component", doc.IsComponent)

	return session, nil
}

// Get returns the open session for docID.
func (s *Sessions) Get(docID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[docID]

	return session, ok
}

// Close forgets the session for docID. Calls already in flight still apply
// their effects.
func (s *Sessions) Close(docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[docID]; !ok {
		return false
	}

	delete(s.sessions, docID)

	return true
}
