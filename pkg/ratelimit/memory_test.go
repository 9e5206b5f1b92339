package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func allowN(t *testing.T, l Limiter, key string, n int) []bool {
	t.Helper()
	out := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		ok, err := l.Allow(context.Background(), key)
		require.NoError(t, err)
		out = append(out, ok)
	}
	return out
}

func TestMemoryLimiter_AdmitsUpToLimit(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiterWithClock(20, time.Minute, clock.Now)

	results := allowN(t, l, "1.2.3.4", 21)

	for i := 0; i < 20; i++ {
		assert.True(t, results[i], "request %d should be admitted", i+1)
	}
	assert.False(t, results[20], "21st request should be denied")
}

func TestMemoryLimiter_DeniedRequestsStillCount(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiterWithClock(2, time.Minute, clock.Now)

	allowN(t, l, "k", 5)

	v, ok := l.windows.Get("k")
	require.True(t, ok)
	assert.Equal(t, 5, v.(*Window).Count)
}

func TestMemoryLimiter_ResetsAfterWindow(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiterWithClock(2, time.Minute, clock.Now)

	assert.Equal(t, []bool{true, true, false}, allowN(t, l, "k", 3))

	// Exactly one window later is still the same window.
	clock.Advance(time.Minute)
	assert.Equal(t, []bool{false}, allowN(t, l, "k", 1))

	clock.Advance(time.Millisecond)
	assert.Equal(t, []bool{true, true, false}, allowN(t, l, "k", 3))
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiterWithClock(1, time.Minute, clock.Now)

	assert.Equal(t, []bool{true, false}, allowN(t, l, "a", 2))
	assert.Equal(t, []bool{true}, allowN(t, l, "b", 1))
	assert.Equal(t, []bool{true}, allowN(t, l, "unknown", 1))
	assert.Equal(t, 3, l.Len())
}

func TestMemoryLimiter_ConcurrentAdmitsExactlyLimit(t *testing.T) {
	clock := newFakeClock()
	l := NewMemoryLimiterWithClock(20, time.Minute, clock.Now)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(context.Background(), "shared")
			if err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), admitted.Load())
}

func TestNewMemoryLimiter_Defaults(t *testing.T) {
	l := NewMemoryLimiter(0, 0)
	assert.Equal(t, DefaultLimit, l.limit)
	assert.Equal(t, DefaultWindow, l.window)
}
