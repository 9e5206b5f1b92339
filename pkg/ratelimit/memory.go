package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps windows in process memory. State is not shared across
// instances. Idle keys are evicted after twice the window.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *cache.Cache
	limit   int
	window  time.Duration
	now     Clock
}

// Ensure MemoryLimiter implements Limiter
var _ Limiter = &MemoryLimiter{}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return NewMemoryLimiterWithClock(limit, window, time.Now)
}

func NewMemoryLimiterWithClock(limit int, window time.Duration, now Clock) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		windows: cache.New(2*window, window),
		limit:   limit,
		window:  window,
		now:     now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var w *Window
	if v, ok := l.windows.Get(key); ok {
		w = v.(*Window)
	}

	if w == nil || now.Sub(w.Start) > l.window {
		l.windows.Set(key, &Window{Count: 1, Start: now}, cache.DefaultExpiration)
		return true, nil
	}

	w.Count++
	// Refresh idle expiry.
	l.windows.Set(key, w, cache.DefaultExpiration)
	return w.Count <= l.limit, nil
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	return l.windows.ItemCount()
}
