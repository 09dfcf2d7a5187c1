package reddit

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum gap between consecutive requests and computes
// the doubling backoff used on throttling responses. No token bucket:
// bursting is undesired, only steady spacing matters.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time

	// Injected for tests.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewLimiter creates a limiter with the given minimum request interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Wait blocks until the minimum interval since the last marked request has
// elapsed. Cancellation interrupts the wait with the context error.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	last := l.last
	l.mu.Unlock()

	if last.IsZero() {
		return ctx.Err()
	}
	elapsed := l.now().Sub(last)
	if elapsed >= l.interval {
		return ctx.Err()
	}
	return l.sleep(ctx, l.interval-elapsed)
}

// Mark records that a request was just issued.
func (l *Limiter) Mark() {
	l.mu.Lock()
	l.last = l.now()
	l.mu.Unlock()
}

// Backoff returns the delay before retry attempt n (1-based). At the
// default 6s interval the sequence is 12s, 24s, 48s.
func (l *Limiter) Backoff(attempt int) time.Duration {
	return l.interval << uint(attempt)
}

// Pause sleeps for d, returning early with the context error on
// cancellation. Retry loops use it so backoff waits stay cancellable.
func (l *Limiter) Pause(ctx context.Context, d time.Duration) error {
	return l.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
