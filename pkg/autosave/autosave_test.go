package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowstudio/pkg/channels/gochannel"
	"github.com/dukex/flowstudio/pkg/eventbus"
	"github.com/dukex/flowstudio/pkg/events"
	"github.com/dukex/flowstudio/pkg/mocks"
	"github.com/dukex/flowstudio/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakePersister struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
}

func (f *fakePersister) Persist(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, id)

	return f.errs[id]
}

func (f *fakePersister) persisted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func newTestSaver(t *testing.T, persister Persister, schedule string) *Saver {
	t.Helper()

	saver, err := New(persister, schedule, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return saver
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New(&fakePersister{}, "every now and then", slog.New(slog.DiscardHandler))
	assert.Error(t, err)

	saver, err := New(&fakePersister{}, "", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, saver.schedule)
}

func TestFlush_WritesEachDirtyDocumentOnce(t *testing.T) {
	persister := &fakePersister{}
	saver := newTestSaver(t, persister, "")

	saver.MarkDirty("a")
	saver.MarkDirty("a")
	saver.MarkDirty("b")
	saver.MarkDirty("")

	assert.Equal(t, 2, saver.Flush(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b"}, persister.persisted())
	assert.Equal(t, 0, saver.Pending())

	assert.Equal(t, 0, saver.Flush(context.Background()))
}

func TestFlush_RequeuesFailuresAndDropsClosedDocuments(t *testing.T) {
	persister := &fakePersister{errs: map[string]error{
		"broken": errors.New("disk full"),
		"closed": &services.ServiceError{Op: "Persist", Code: "not_found", Err: services.ErrDocumentNotFound},
	}}
	saver := newTestSaver(t, persister, "")

	saver.MarkDirty("ok")
	saver.MarkDirty("broken")
	saver.MarkDirty("closed")

	assert.Equal(t, 1, saver.Flush(context.Background()))
	assert.Equal(t, 1, saver.Pending())
}

func TestForget(t *testing.T) {
	persister := &fakePersister{}
	saver := newTestSaver(t, persister, "")

	saver.MarkDirty("a")
	saver.Forget("a")

	assert.Equal(t, 0, saver.Flush(context.Background()))
	assert.Empty(t, persister.persisted())
}

func TestRegister_TracksChangeFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	saver := newTestSaver(t, &fakePersister{}, "")
	require.NoError(t, saver.Register(bus))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "a", events.NewDocumentUpdated("a")))
	require.NoError(t, bus.Publish(ctx, "b", events.NewDocumentUpdated("b")))

	assert.Eventually(t, func() bool { return saver.Pending() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, "a", events.NewDocumentRemoved("a", false)))

	assert.Eventually(t, func() bool { return saver.Pending() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestStartStop_FlushesOnSchedule(t *testing.T) {
	persister := &fakePersister{}
	saver := newTestSaver(t, persister, "@every 1s")

	require.NoError(t, saver.Start(context.Background()))

	saver.MarkDirty("a")

	assert.Eventually(t, func() bool { return len(persister.persisted()) == 1 }, 3*time.Second, 50*time.Millisecond)

	saver.MarkDirty("b")
	saver.Stop(context.Background())

	assert.ElementsMatch(t, []string{"a", "b"}, persister.persisted())
}

func TestRegister_PropagatesHandlerErrors(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Handle", events.DocumentUpdatedEvent, mock.Anything).Return(nil).Once()
	bus.On("Handle", events.DocumentRemovedEvent, mock.Anything).Return(errors.New("closed")).Once()

	saver := newTestSaver(t, &fakePersister{}, "")

	assert.ErrorContains(t, saver.Register(bus), "closed")
	bus.AssertExpectations(t)
}
