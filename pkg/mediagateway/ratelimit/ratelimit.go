// Package ratelimit provides an in-memory fixed-window rate limiter keyed
// by (operation, identity). The store is an explicit object handed to the
// gateway by reference so tests can instantiate isolated stores; there is
// no package-level singleton.
package ratelimit

import (
	"sync"
	"time"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// evictThreshold is the bucket count above which expired buckets are swept
// when a new key is inserted.
const evictThreshold = 1024

// bucket tracks one key's request count within the current window. Each
// bucket carries its own mutex so concurrent checks against distinct keys
// never contend.
type bucket struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
	window      time.Duration
}

// Store is an in-memory implementation of the mediagateway.RateLimiter
// interface. The zero value is not usable; call New or NewDisabled.
type Store struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	disabled bool
	now      func() time.Time
}

// New creates a new rate limit store
func New() *Store {
	return &Store{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// NewDisabled creates a store whose checks always allow. Call sites do not
// change between enabled and disabled environments.
func NewDisabled() *Store {
	s := New()
	s.disabled = true
	return s
}

// WithClock overrides the time source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Check records one request for key and reports whether it is within limit
// for the given window. The first request for a key, or the first request
// after the key's window elapsed, resets the bucket. Increments on the same
// key are serialized so concurrent requests cannot both be admitted past
// the limit.
func (s *Store) Check(key string, limit int, window time.Duration) mediagateway.RateDecision {
	if s.disabled {
		return mediagateway.RateDecision{Allowed: true, Remaining: limit}
	}

	b := s.bucket(key, window)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := s.now()
	if now.Sub(b.windowStart) >= b.window {
		b.count = 1
		b.windowStart = now
		b.window = window
	} else {
		b.count++
	}

	resetAt := b.windowStart.Add(b.window)
	if b.count > limit {
		return mediagateway.RateDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}
	}

	remaining := limit - b.count
	return mediagateway.RateDecision{
		Allowed:   true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// bucket returns the bucket for key, creating it if needed.
func (s *Store) bucket(key string, window time.Duration) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		if len(s.buckets) >= evictThreshold {
			s.evictExpiredLocked()
		}
		b = &bucket{
			// A zero windowStart makes the first Check reset the bucket.
			window: window,
		}
		s.buckets[key] = b
	}
	return b
}

// evictExpiredLocked drops buckets whose window has closed. Caller holds s.mu.
func (s *Store) evictExpiredLocked() {
	now := s.now()
	for key, b := range s.buckets {
		if b.mu.TryLock() {
			expired := now.Sub(b.windowStart) >= b.window
			b.mu.Unlock()
			if expired {
				delete(s.buckets, key)
			}
		}
	}
}

// Len reports the number of live buckets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
