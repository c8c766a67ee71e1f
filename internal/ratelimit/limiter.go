// Package ratelimit implements a process-local fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultMaxKeys is the table size above which expired entries are swept.
const DefaultMaxKeys = 10000

// Result reports the outcome of a single Check.
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
	Limit             int
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per key in fixed windows. A single mutex makes
// check-and-increment atomic per key.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*window
	maxKeys int
	now     func() time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithMaxKeys sets the sweep threshold.
func WithMaxKeys(n int) Option {
	return func(l *Limiter) {
		if n > 0 {
			l.maxKeys = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]*window),
		maxKeys: DefaultMaxKeys,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one request for key against limit per window. The first
// request of a window is itself counted.
func (l *Limiter) Check(key string, limit int, win time.Duration) Result {
	if limit <= 0 {
		return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter(win), Limit: limit}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) > l.maxKeys {
		l.sweep(now)
	}

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		l.entries[key] = &window{count: 1, resetAt: now.Add(win)}
		return Result{Allowed: true, Remaining: limit - 1, Limit: limit}
	}
	if entry.count >= limit {
		return Result{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter(entry.resetAt.Sub(now)), Limit: limit}
	}
	entry.count++
	return Result{Allowed: true, Remaining: limit - entry.count, Limit: limit}
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset forgets every key.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]*window)
}

// sweep drops expired windows. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}

// retryAfter rounds d up to whole seconds, minimum one.
func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
