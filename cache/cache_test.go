package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prefsFixture struct {
	Bookmarks []string `json:"bookmarks"`
	Theme     string   `json:"theme"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	require.NoError(t, c.Set(ctx, "device-1", prefsFixture{Bookmarks: []string{"a", "b"}, Theme: "dark"}, time.Minute))

	var got prefsFixture
	ok, err := c.Get(ctx, "device-1", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got.Bookmarks)
	assert.Equal(t, "dark", got.Theme)
}

func TestMemoryMiss(t *testing.T) {
	var got prefsFixture
	ok, err := NewMemory().Get(context.Background(), "nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	now = now.Add(2 * time.Second)

	var got string
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryZeroTTLKeeps(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 42, 0))
	now = now.Add(24 * time.Hour)

	var got int
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var got string
	ok, _ := c.Get(ctx, "k", &got)
	assert.False(t, ok)
}

func TestMemorySetRejectsUnencodable(t *testing.T) {
	err := NewMemory().Set(context.Background(), "k", make(chan int), time.Minute)
	assert.Error(t, err)
}
