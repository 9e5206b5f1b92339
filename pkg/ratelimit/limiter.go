// Package ratelimit admits or rejects requests per client key using fixed
// counting windows.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// Limiter decides whether one more request from key is admitted. Every call
// counts, admitted or not.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is the per-key counting state.
type Window struct {
	Count int
	Start time.Time
}

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time
