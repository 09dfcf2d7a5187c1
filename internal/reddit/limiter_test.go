package reddit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a Limiter without real sleeping. Sleeping advances the
// clock by the requested duration and records it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.sleeps = append(f.sleeps, d)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newFakeLimiter(interval time.Duration) (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := NewLimiter(interval)
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l, clock
}

func TestLimiterWait(t *testing.T) {
	ctx := context.Background()

	t.Run("first request does not wait", func(t *testing.T) {
		l, clock := newFakeLimiter(6 * time.Second)
		require.NoError(t, l.Wait(ctx))
		assert.Empty(t, clock.Sleeps())
	})

	t.Run("back to back request waits the remainder", func(t *testing.T) {
		l, clock := newFakeLimiter(6 * time.Second)
		l.Mark()
		clock.Advance(2 * time.Second)
		require.NoError(t, l.Wait(ctx))
		assert.Equal(t, []time.Duration{4 * time.Second}, clock.Sleeps())
	})

	t.Run("no wait once interval has passed", func(t *testing.T) {
		l, clock := newFakeLimiter(6 * time.Second)
		l.Mark()
		clock.Advance(7 * time.Second)
		require.NoError(t, l.Wait(ctx))
		assert.Empty(t, clock.Sleeps())
	})
}

func TestLimiterBackoffDoubles(t *testing.T) {
	l := NewLimiter(6 * time.Second)

	assert.Equal(t, 12*time.Second, l.Backoff(1))
	assert.Equal(t, 24*time.Second, l.Backoff(2))
	assert.Equal(t, 48*time.Second, l.Backoff(3))
}

func TestLimiterPauseCancellation(t *testing.T) {
	l := NewLimiter(6 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Pause(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLimiterWaitCancellation(t *testing.T) {
	l := NewLimiter(time.Hour)
	l.Mark()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Wait(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
