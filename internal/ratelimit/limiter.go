// Package ratelimit implements fixed-window request limiting keyed by
// client address.
package ratelimit

import (
	"context"
	"time"
)

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait, rounded up to whole
// seconds and never less than one.
func (r Result) RetryAfter(now time.Time) time.Duration {
	wait := r.ResetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	secs := (wait + time.Second - 1) / time.Second
	return secs * time.Second
}

// Limiter decides whether one more request for key fits in the current
// window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
