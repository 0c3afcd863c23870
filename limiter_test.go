package modernblog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(max int, window time.Duration) (*LoginLimiter, *time.Time) {
	l := NewLoginLimiter(max, window)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLoginLimiterBlocksAfterMax(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.10"

	assert.True(t, limiter.Allow(ip))
	assert.True(t, limiter.Allow(ip))
	assert.False(t, limiter.Allow(ip), "third attempt should be blocked")
}

func TestLoginLimiterResetsAfterWindow(t *testing.T) {
	limiter, now := newTestLimiter(1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.20"

	assert.True(t, limiter.Allow(ip))
	assert.False(t, limiter.Allow(ip))

	*now = now.Add(61 * time.Second)
	assert.True(t, limiter.Allow(ip), "attempt after the window should be allowed")
}

func TestLoginLimiterIsPerIP(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	defer limiter.Close()

	assert.True(t, limiter.Allow("203.0.113.30"))
	assert.True(t, limiter.Allow("203.0.113.31"), "second ip is independent")
	assert.False(t, limiter.Allow("203.0.113.30"))
}

func TestLoginLimiterCheckDoesNotRecord(t *testing.T) {
	limiter, now := newTestLimiter(1, time.Minute)
	defer limiter.Close()
	ip := "203.0.113.40"

	assert.True(t, limiter.Check(ip))
	assert.True(t, limiter.Check(ip))
	limiter.Record(ip)
	assert.False(t, limiter.Check(ip))

	*now = now.Add(2 * time.Minute)
	limiter.sweep()
	limiter.mu.Lock()
	_, tracked := limiter.attempts[ip]
	limiter.mu.Unlock()
	assert.False(t, tracked)
	assert.NoError(t, limiter.Close())
}
