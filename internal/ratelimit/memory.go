package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// MemoryLimiter keeps one counter per key in process memory. Expired
// windows are swept lazily, at most once per window length.
type MemoryLimiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	length    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryLimiter allows limit requests per key in each window of length.
func NewMemoryLimiter(limit int, length time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		length:  length,
		now:     time.Now,
	}
}

var _ Limiter = (*MemoryLimiter)(nil)

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.length)) {
		w = &window{start: now}
		l.windows[key] = w
	}

	res := Result{Limit: l.limit, ResetAt: w.start.Add(l.length)}
	if w.count >= l.limit {
		return res, nil
	}

	w.count++
	res.Allowed = true
	res.Remaining = l.limit - w.count
	return res, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.length {
		return
	}
	l.lastSweep = now
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.length)) {
			delete(l.windows, key)
		}
	}
}
