package eventbus

import (
	"context"
	"log/slog"
)

// Emitter publishes change events on a best effort basis. A nil publisher
// disables publishing; failures are logged and never returned to callers, so
// state mutations never depend on the feed being reachable.
type Emitter struct {
	publisher EventPublisher
	logger    *slog.Logger
}

// NewEmitter wraps publisher. Both arguments may be nil.
func NewEmitter(publisher EventPublisher, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Emitter{publisher: publisher, logger: logger}
}

// Emit publishes event under key.
func (e *Emitter) Emit(ctx context.Context, key string, event Event) {
	if e == nil || e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err,
		)
	}
}
