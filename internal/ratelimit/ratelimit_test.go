package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gerr "github.com/wedsync/guestlist/internal/errors"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestLimiter_Allow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := newLimiter(time.Second, 3, clock.now)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("test-key"), "request %d", i+1)
	}
	assert.False(t, limiter.Allow("test-key"))
	assert.True(t, limiter.Allow("other-key"))

	clock.t = clock.t.Add(1100 * time.Millisecond)
	assert.True(t, limiter.Allow("test-key"))
}

func TestLimiter_GetRemaining(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := newLimiter(time.Second, 5, clock.now)

	assert.Equal(t, 5, limiter.GetRemaining("test-key"))
	limiter.Allow("test-key")
	limiter.Allow("test-key")
	assert.Equal(t, 3, limiter.GetRemaining("test-key"))

	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, 5, limiter.GetRemaining("test-key"))
}

func TestLimiter_Purge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	limiter := newLimiter(100*time.Millisecond, 5, clock.now)
	limiter.Allow("key1")
	limiter.Allow("key2")

	clock.t = clock.t.Add(150 * time.Millisecond)
	limiter.Allow("key3")
	limiter.purge()

	assert.Len(t, limiter.counters, 1)
	assert.Contains(t, limiter.counters, "key3")
}

func TestMultiKeyLimiter_CheckResponse(t *testing.T) {
	limiter := NewMultiKeyLimiter(Config{ResponsesPerIPPerHour: 3, ResponsesPerTokenPerDay: 2})

	assert.NoError(t, limiter.CheckResponse("192.168.1.1", "tok-a"))
	assert.NoError(t, limiter.CheckResponse("192.168.1.1", "tok-a"))

	err := limiter.CheckResponse("192.168.1.2", "tok-a")
	assert.ErrorIs(t, err, gerr.ErrRateLimited)

	assert.NoError(t, limiter.CheckResponse("192.168.1.1", "tok-b"))
	err = limiter.CheckResponse("192.168.1.1", "tok-c")
	assert.ErrorIs(t, err, gerr.ErrRateLimited)

	ipLeft, tokenLeft := limiter.GetResponseLimits("192.168.1.1", "tok-b")
	assert.Equal(t, 0, ipLeft)
	assert.Equal(t, 1, tokenLeft)
}

func TestMultiKeyLimiter_CheckLookup(t *testing.T) {
	limiter := NewMultiKeyLimiter(Config{LookupsPerIPPerMinute: 2})

	assert.NoError(t, limiter.CheckLookup("10.0.0.1"))
	assert.NoError(t, limiter.CheckLookup("10.0.0.1"))
	assert.ErrorIs(t, limiter.CheckLookup("10.0.0.1"), gerr.ErrRateLimited)
	assert.NoError(t, limiter.CheckLookup("10.0.0.2"))
}
