// Package notification implements the notification center: an ordered queue of
// transient info, error and success messages shown to the user.
package notification

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/oklog/ulid/v2"
)

const eventKey = "notifications"

// Center holds the notification queue. Items keep push order and are never
// mutated once queued.
type Center struct {
	mu      sync.Mutex
	items   []models.NotificationItem
	open    bool
	unread  bool
	entropy io.Reader
	now     func() time.Time
	emitter *eventbus.Emitter
	logger  *slog.Logger
}

// Option configures a Center.
type Option func(*Center)

// WithEmitter publishes queue mutations on the change feed.
func WithEmitter(emitter *eventbus.Emitter) Option {
	return func(c *Center) {
		c.emitter = emitter
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		c.now = now
	}
}

// NewCenter creates an empty notification center.
func NewCenter(logger *slog.Logger, opts ...Option) *Center {
	if logger == nil {
		logger = slog.Default()
	}

	center := &Center{
		items:   make([]models.NotificationItem, 0),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
		logger:  logger,
	}

	for _, opt := range opts {
		opt(center)
	}

	return center
}

// Push appends a new notification. Pushing never deduplicates; callers must
// not report the same failure twice.
func (c *Center) Push(ctx context.Context, kind models.NotificationKind, title string, list ...string) models.NotificationItem {
	c.mu.Lock()
	item := c.appendLocked(kind, title, list)
	c.mu.Unlock()

	c.pushed(ctx, item)

	return item
}

// PushUnique pushes like Push unless an item with the same kind, title and
// list is still queued, in which case that item is returned with false.
func (c *Center) PushUnique(ctx context.Context, kind models.NotificationKind, title string, list ...string) (models.NotificationItem, bool) {
	c.mu.Lock()

	for _, queued := range c.items {
		if queued.Kind == kind && queued.Title == title && slices.Equal(queued.List, list) {
			queued.List = slices.Clone(queued.List)
			c.mu.Unlock()

			return queued, false
		}
	}

	item := c.appendLocked(kind, title, list)
	c.mu.Unlock()

	c.pushed(ctx, item)

	return item, true
}

// appendLocked queues a new item. c.mu must be held.
func (c *Center) appendLocked(kind models.NotificationKind, title string, list []string) models.NotificationItem {
	now := c.now().UTC()
	item := models.NotificationItem{
		ID:        ulid.MustNew(ulid.Timestamp(now), c.entropy).String(),
		Kind:      kind,
		Title:     title,
		List:      slices.Clone(list),
		CreatedAt: now,
	}

	if item.List == nil {
		item.List = []string{}
	}

	c.items = append(c.items, item)

	if !c.open {
		c.unread = true
	}

	// The queue keeps its own copy of List.
	item.List = slices.Clone(item.List)

	return item
}

func (c *Center) pushed(ctx context.Context, item models.NotificationItem) {
	c.logger.DebugContext(ctx, "Notification pushed", "id", item.ID, "kind", item.Kind, "title", item.Title)
	c.emitter.Emit(ctx, eventKey, events.NewNotificationPushed(item))
}

// Success pushes a success notification.
func (c *Center) Success(ctx context.Context, title string, list ...string) models.NotificationItem {
	return c.Push(ctx, models.NotificationSuccess, title, list...)
}

// Error pushes an error notification.
func (c *Center) Error(ctx context.Context, title string, list ...string) models.NotificationItem {
	return c.Push(ctx, models.NotificationError, title, list...)
}

// Info pushes an info notification.
func (c *Center) Info(ctx context.Context, title string, list ...string) models.NotificationItem {
	return c.Push(ctx, models.NotificationInfo, title, list...)
}

// Remove deletes the notification with the given id. Removing an absent id is
// a no-op and reports false.
func (c *Center) Remove(ctx context.Context, id string) bool {
	c.mu.Lock()

	index := slices.IndexFunc(c.items, func(item models.NotificationItem) bool {
		return item.ID == id
	})
	if index >= 0 {
		c.items = slices.Delete(c.items, index, index+1)
	}

	c.mu.Unlock()

	if index < 0 {
		return false
	}

	c.emitter.Emit(ctx, eventKey, events.NewNotificationRemoved(id))

	return true
}

// Clear empties the queue.
func (c *Center) Clear(ctx context.Context) {
	c.mu.Lock()
	count := len(c.items)
	c.items = make([]models.NotificationItem, 0)
	c.unread = false
	c.mu.Unlock()

	c.emitter.Emit(ctx, eventKey, events.NewNotificationsCleared(count))
}

// SetCenterOpen records whether the notification surface is visible. Opening
// it marks the queue as read without removing any item.
func (c *Center) SetCenterOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = open
	if open {
		c.unread = false
	}
}

// CenterOpen reports whether the notification surface is visible.
func (c *Center) CenterOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open
}

// Unread reports whether items were pushed while the center was closed.
func (c *Center) Unread() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.unread
}

// Items returns a snapshot of the queue in push order.
func (c *Center) Items() []models.NotificationItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := make([]models.NotificationItem, len(c.items))
	for i, item := range c.items {
		item.List = slices.Clone(item.List)
		snapshot[i] = item
	}

	return snapshot
}

// Get returns the notification with the given id.
func (c *Center) Get(id string) (models.NotificationItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range c.items {
		if item.ID == id {
			item.List = slices.Clone(item.List)

			return item, true
		}
	}

	return models.NotificationItem{}, false
}

// Len returns the number of queued notifications.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}
