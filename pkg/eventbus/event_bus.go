// Package eventbus provides the change feed transport that lets presentation
// layers and background workers observe registry and notification mutations.
package eventbus

import (
	"context"

	"github.com/dukex/flowstudio/pkg/events"
)

// Event is anything published on the change feed.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends events keyed by the document or queue they concern.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches incoming events to one handler per event type.
// Handlers must be registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a decoded event, always a pointer to one of the
// types in package events. A returned error nacks the message.
type EventHandler func(ctx context.Context, event any) error

// EventBus is a publisher and subscriber over the same transport.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

var _ EventBus = (*WatermillEventBus)(nil)
