package notification

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCenter(opts ...Option) *Center {
	return NewCenter(slog.New(slog.DiscardHandler), opts...)
}

func titles(items []models.NotificationItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Title
	}

	return out
}

func TestCenter_PushPreservesOrder(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	center.Info(ctx, "first")
	center.Error(ctx, "second", "detail a", "detail b")
	center.Success(ctx, "third")

	items := center.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"first", "second", "third"}, titles(items))
	assert.Equal(t, models.NotificationInfo, items[0].Kind)
	assert.Equal(t, models.NotificationError, items[1].Kind)
	assert.Equal(t, []string{"detail a", "detail b"}, items[1].List)
	assert.Equal(t, []string{}, items[0].List)
}

func TestCenter_IDsAreUniqueAndOrdered(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	center := newTestCenter(WithClock(func() time.Time { return fixed }))

	ids := make([]string, 0, 50)
	for range 50 {
		ids = append(ids, center.Info(ctx, "same").ID)
	}

	assert.True(t, sort.StringsAreSorted(ids), "ids must sort in generation order")

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCenter_RemoveMiddleKeepsRelativeOrder(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	first := center.Info(ctx, "first")
	second := center.Info(ctx, "second")
	third := center.Info(ctx, "third")

	assert.True(t, center.Remove(ctx, second.ID))

	items := center.Items()
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, third.ID, items[1].ID)
}

func TestCenter_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	item := center.Info(ctx, "only")

	assert.True(t, center.Remove(ctx, item.ID))
	assert.False(t, center.Remove(ctx, item.ID))
	assert.False(t, center.Remove(ctx, "never-existed"))
	assert.Equal(t, 0, center.Len())
}

func TestCenter_Clear(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	center.Info(ctx, "a")
	center.Info(ctx, "b")
	center.Clear(ctx)

	assert.Empty(t, center.Items())
	assert.False(t, center.Unread())
}

func TestCenter_OpeningMarksReadWithoutDestroyingItems(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	item := center.Error(ctx, "boom")
	assert.True(t, center.Unread())

	center.SetCenterOpen(true)
	assert.True(t, center.CenterOpen())
	assert.False(t, center.Unread())

	got, ok := center.Get(item.ID)
	require.True(t, ok)
	assert.Equal(t, "boom", got.Title)

	center.Info(ctx, "while open")
	assert.False(t, center.Unread())

	center.SetCenterOpen(false)
	center.Info(ctx, "after close")
	assert.True(t, center.Unread())
}

func TestCenter_ItemsSnapshotIsIsolated(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	center.Error(ctx, "boom", "a")

	snapshot := center.Items()
	snapshot[0].List[0] = "mutated"
	snapshot[0].Title = "mutated"

	fresh := center.Items()
	assert.Equal(t, "boom", fresh[0].Title)
	assert.Equal(t, []string{"a"}, fresh[0].List)
}

func TestCenter_ConcurrentPush(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			center.Info(ctx, "concurrent")
		}()
	}

	wg.Wait()

	assert.Equal(t, 20, center.Len())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recordingPublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

func TestCenter_EmitsChangeEvents(t *testing.T) {
	ctx := context.Background()
	publisher := &recordingPublisher{}
	center := newTestCenter(WithEmitter(eventbus.NewEmitter(publisher, nil)))

	item := center.Info(ctx, "a")
	center.Remove(ctx, item.ID)
	center.Remove(ctx, item.ID)
	center.Clear(ctx)

	require.Len(t, publisher.events, 3)
	assert.Equal(t, events.NotificationPushedEvent, publisher.events[0].GetType())
	assert.Equal(t, events.NotificationRemovedEvent, publisher.events[1].GetType())
	assert.Equal(t, events.NotificationsClearedEvent, publisher.events[2].GetType())
}

func TestCenter_PushUniqueSkipsQueuedDuplicate(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	first, pushed := center.PushUnique(ctx, models.NotificationError, "Error loading store data", "timeout")
	require.True(t, pushed)

	again, pushed := center.PushUnique(ctx, models.NotificationError, "Error loading store data", "timeout")
	assert.False(t, pushed)
	assert.Equal(t, first.ID, again.ID)

	_, pushed = center.PushUnique(ctx, models.NotificationError, "Error loading store data", "refused")
	assert.True(t, pushed)

	center.Remove(ctx, first.ID)

	_, pushed = center.PushUnique(ctx, models.NotificationError, "Error loading store data", "timeout")
	assert.True(t, pushed)
	assert.Equal(t, 2, center.Len())
}

func TestCenter_ConcurrentPushUniqueQueuesOnce(t *testing.T) {
	ctx := context.Background()
	center := newTestCenter()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		pushes int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, pushed := center.PushUnique(ctx, models.NotificationError, "Error loading store data", "timeout"); pushed {
				mu.Lock()
				pushes++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, pushes)
	assert.Equal(t, 1, center.Len())
}
