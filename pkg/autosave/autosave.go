// Package autosave persists edited documents in the background. It follows the
// change feed, remembers which documents changed and writes them on a cron
// schedule without stamping them as explicitly saved.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule flushes every thirty seconds.
const DefaultSchedule = "@every 30s"

// Persister writes the current registry copy of a document.
type Persister interface {
	Persist(ctx context.Context, id string) error
}

// Saver tracks dirty documents and flushes them on a schedule.
type Saver struct {
	persister Persister
	schedule  string
	logger    *slog.Logger

	mu    sync.Mutex
	dirty map[string]struct{}

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Saver. An empty schedule uses DefaultSchedule.
func New(persister Persister, schedule string, logger *slog.Logger) (*Saver, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid autosave schedule '%s': %w", schedule, err)
	}

	return &Saver{
		persister: persister,
		schedule:  schedule,
		logger:    logger.With("module", "autosave"),
		dirty:     make(map[string]struct{}),
	}, nil
}

// Register subscribes the saver to document mutations on sub.
func (s *Saver) Register(sub eventbus.EventSubscriber) error {
	if err := sub.Handle(events.DocumentUpdatedEvent, func(_ context.Context, event interface{}) error {
		if updated, ok := event.(*events.DocumentUpdated); ok {
			s.MarkDirty(updated.DocumentID)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to register update handler: %w", err)
	}

	if err := sub.Handle(events.DocumentRemovedEvent, func(_ context.Context, event interface{}) error {
		if removed, ok := event.(*events.DocumentRemoved); ok {
			s.Forget(removed.DocumentID)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("failed to register remove handler: %w", err)
	}

	return nil
}

// MarkDirty queues id for the next flush.
func (s *Saver) MarkDirty(id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dirty[id] = struct{}{}
}

// Forget drops id from the queue.
func (s *Saver) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.dirty, id)
}

// Pending returns the number of queued documents.
func (s *Saver) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.dirty)
}

// Flush persists every queued document and returns how many were written.
// Failed writes are queued again, except for documents that are no longer open.
func (s *Saver) Flush(ctx context.Context) int {
	s.mu.Lock()
	batch := s.dirty
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	written := 0

	for id := range batch {
		err := s.persister.Persist(ctx, id)

		switch {
		case err == nil:
			written++
		case errors.Is(err, services.ErrDocumentNotFound):
			s.logger.DebugContext(ctx, "Skipping closed document", "document_id", id)
		default:
			s.logger.ErrorContext(ctx, "Autosave failed", "document_id", id, "error", err)
			s.MarkDirty(id)
		}
	}

	if written > 0 {
		s.logger.DebugContext(ctx, "Autosave flushed", "count", written)
	}

	return written
}

// Start schedules the flush job.
func (s *Saver) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	logger := cronLogger{logger: s.logger}
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(logger),
		cron.Recover(logger),
	))

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Flush(s.ctx) }); err != nil {
		return fmt.Errorf("failed to schedule autosave: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Autosave started", "schedule", s.schedule)

	return nil
}

// Stop halts the schedule and performs a final flush with ctx.
func (s *Saver) Stop(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.Flush(ctx)
	s.logger.InfoContext(ctx, "Autosave stopped")
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
