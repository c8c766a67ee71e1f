package ratelimit

import (
	"fmt"
	"sync"
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
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestCheckAllowsUpToLimitThenDenies(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	var allowed []bool
	var last Result
	for i := 0; i < 4; i++ {
		last = l.Check("10.0.0.1:cancel", 3, time.Second)
		allowed = append(allowed, last.Allowed)
	}

	assert.Equal(t, []bool{true, true, true, false}, allowed)
	assert.Equal(t, 0, last.Remaining)
	assert.GreaterOrEqual(t, last.RetryAfterSeconds, 1)
	assert.Equal(t, 3, last.Limit)
}

func TestCheckReportsRemaining(t *testing.T) {
	l := New(WithClock(newFakeClock().Now))

	assert.Equal(t, 4, l.Check("k", 5, time.Minute).Remaining)
	assert.Equal(t, 3, l.Check("k", 5, time.Minute).Remaining)
	assert.Equal(t, 2, l.Check("k", 5, time.Minute).Remaining)
}

func TestCheckWindowRollover(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	for i := 0; i < 3; i++ {
		l.Check("k", 3, time.Second)
	}
	require.False(t, l.Check("k", 3, time.Second).Allowed)

	clock.Advance(time.Second)
	res := l.Check("k", 3, time.Second)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestRetryAfterRoundsUp(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now))

	l.Check("k", 1, 10*time.Second)
	clock.Advance(1500 * time.Millisecond)
	res := l.Check("k", 1, 10*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, 9, res.RetryAfterSeconds)

	clock.Advance(8*time.Second + 400*time.Millisecond)
	res = l.Check("k", 1, 10*time.Second)
	require.False(t, res.Allowed)
	assert.Equal(t, 1, res.RetryAfterSeconds)
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(WithClock(newFakeClock().Now))

	require.True(t, l.Check("a", 1, time.Minute).Allowed)
	require.False(t, l.Check("a", 1, time.Minute).Allowed)
	assert.True(t, l.Check("b", 1, time.Minute).Allowed)
}

func TestSweepEvictsExpiredEntriesAboveThreshold(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithMaxKeys(2))

	l.Check("a", 5, time.Second)
	l.Check("b", 5, time.Second)
	l.Check("c", 5, time.Minute)
	require.Equal(t, 3, l.Len())

	clock.Advance(2 * time.Second)
	l.Check("d", 5, time.Minute)

	assert.Equal(t, 2, l.Len(), "expired a and b should be swept, c and d remain")
}

func TestSweepToleratesRetentionBelowThreshold(t *testing.T) {
	clock := newFakeClock()
	l := New(WithClock(clock.Now), WithMaxKeys(10))

	l.Check("a", 5, time.Second)
	clock.Advance(time.Minute)
	l.Check("b", 5, time.Second)

	assert.Equal(t, 2, l.Len())
}

func TestNonPositiveLimitDenies(t *testing.T) {
	l := New()
	res := l.Check("k", 0, time.Second)
	assert.False(t, res.Allowed)
	assert.Equal(t, 1, res.RetryAfterSeconds)
}

func TestConcurrentChecksNeverExceedLimit(t *testing.T) {
	l := New()
	const limit = 25

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared", limit, time.Hour).Allowed {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, granted)
}

func TestReset(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		l.Check(fmt.Sprintf("k%d", i), 1, time.Minute)
	}
	l.Reset()
	assert.Equal(t, 0, l.Len())
}
