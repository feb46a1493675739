package ratelimit

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return now })

	const limit = 5
	window := time.Minute

	for i := 1; i <= limit; i++ {
		decision := store.Check("delete-asset:user_u", limit, window)
		require.True(t, decision.Allowed, "request %d within the window", i)
		assert.Equal(t, limit-i, decision.Remaining)
	}

	decision := store.Check("delete-asset:user_u", limit, window)
	require.False(t, decision.Allowed, "request over the limit is denied")
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, decision.RetryAfter, window)
	assert.Equal(t, now.Add(window), decision.ResetAt)

	// Advancing past the window resets the bucket.
	now = now.Add(window + time.Second)
	decision = store.Check("delete-asset:user_u", limit, window)
	assert.True(t, decision.Allowed)
	assert.Equal(t, limit-1, decision.Remaining)
}

func TestKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		store.Check("delete-asset:user_u", 3, time.Minute)
	}
	denied := store.Check("delete-asset:user_u", 3, time.Minute)
	require.False(t, denied.Allowed)

	other := store.Check("delete-asset:user_v", 3, time.Minute)
	assert.True(t, other.Allowed, "one identity cannot exhaust another's quota")

	sameIdentityOtherOp := store.Check("create-folder:user_u", 3, time.Minute)
	assert.True(t, sameIdentityOtherOp.Allowed, "operation classes have separate buckets")
}

func TestDisabledStoreAlwaysAllows(t *testing.T) {
	store := NewDisabled()

	for i := 0; i < 100; i++ {
		decision := store.Check("delete-asset:user_u", 1, time.Minute)
		require.True(t, decision.Allowed)
	}
}

func TestConcurrentChecksDoNotLoseIncrements(t *testing.T) {
	store := New()

	const (
		limit   = 50
		workers = 200
	)

	var allowed int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if store.Check("delete-asset:user_u", limit, time.Hour).Allowed {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(limit), allowed, "exactly limit requests admitted, no lost increments")
}

func TestExpiredBucketsAreEvicted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := New().WithClock(func() time.Time { return now })

	for i := 0; i < evictThreshold; i++ {
		store.Check(key(i), 10, time.Minute)
	}
	require.Equal(t, evictThreshold, store.Len())

	// All windows have closed; inserting one more key triggers a sweep.
	now = now.Add(2 * time.Minute)
	store.Check("fresh", 10, time.Minute)
	assert.Equal(t, 1, store.Len())
}

func key(i int) string {
	return "delete-asset:user_" + strconv.Itoa(i)
}
