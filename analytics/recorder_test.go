package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/database"
)

type counters struct {
	mu        sync.Mutex
	accepted  int
	dropped   map[string]int
	persisted int
}

func (c *counters) hooks() RecorderHooks {
	c.dropped = map[string]int{}
	return RecorderHooks{
		Accepted: func(string) { c.mu.Lock(); c.accepted++; c.mu.Unlock() },
		Dropped:  func(r string) { c.mu.Lock(); c.dropped[r]++; c.mu.Unlock() },
		Persisted: func(Event, error) {
			c.mu.Lock()
			c.persisted++
			c.mu.Unlock()
		},
	}
}

func (c *counters) persistedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persisted
}

func newTestRecorder(t *testing.T) (*Recorder, *Store, *counters) {
	t.Helper()
	store := newTestStore(t)
	c := &counters{}
	r, err := NewRecorder(store, zap.NewNop(), c.hooks())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r, store, c
}

func TestRecorderPersists(t *testing.T) {
	ctx := context.Background()
	r, store, c := newTestRecorder(t)

	ok, err := r.Record(ctx, Event{DeviceID: "device_1_a", Type: EventPostView, Data: database.RawJSON(`{"slug":"go"}`)})
	require.NoError(t, err)
	assert.True(t, ok)

	require.Eventually(t, func() bool { return c.persistedCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	events, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventPostView, events[0].Type)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, "device_1_a", events[0].DeviceID)
}

func TestRecorderDropsDuplicatesWithinWindow(t *testing.T) {
	ctx := context.Background()
	r, _, c := newTestRecorder(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	ev := Event{DeviceID: "d1", Type: EventShare, Data: database.RawJSON(`{"slug":"go"}`)}
	ok, err := r.Record(ctx, ev)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Record(ctx, ev)
	require.NoError(t, err)
	assert.False(t, ok)

	other := ev
	other.DeviceID = "d2"
	ok, err = r.Record(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(DedupWindow)
	ok, err = r.Record(ctx, ev)
	require.NoError(t, err)
	assert.True(t, ok)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 3, c.accepted)
	assert.Equal(t, 1, c.dropped[DropDuplicate])
}

func TestRecorderRejectsInvalid(t *testing.T) {
	r, _, c := newTestRecorder(t)
	ok, err := r.Record(context.Background(), Event{Type: ""})
	assert.False(t, ok)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, 1, c.dropped[DropInvalid])
}

func TestRecorderCloseStopsSubscriber(t *testing.T) {
	store := newTestStore(t)
	r, err := NewRecorder(store, nil, RecorderHooks{})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Record(context.Background(), Event{Type: EventPageView})
	assert.Error(t, err)
}
