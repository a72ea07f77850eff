package notion

import (
	"context"
	"sync"
	"time"
)

const (
	rateWindow = time.Second
	rateLimit  = 3
	// rateMargin is added to every computed wait so the oldest admission
	// has actually left the window when the caller proceeds.
	rateMargin = 50 * time.Millisecond
)

// rateLimiter admits at most limit sends per trailing window. Callers that
// arrive while the window is full are delayed, never dropped.
type rateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	margin time.Duration
	sent   []time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{window: rateWindow, limit: rateLimit, margin: rateMargin}
}

// wait blocks until another send may be admitted, then records the admission
// timestamp. The prune-check-append sequence runs under one lock so that no
// more than limit sends are admitted within any rolling window, even with
// concurrent callers.
func (l *rateLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		now := time.Now()
		l.prune(now)
		if len(l.sent) < l.limit {
			// Record the time of the actual send, not the time the
			// check began.
			l.sent = append(l.sent, time.Now())
			return nil
		}
		delay := l.window - now.Sub(l.sent[0]) + l.margin

		l.mu.Unlock()
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			l.mu.Lock()
			return ctx.Err()
		}
		l.mu.Lock()
	}
}

// prune drops admission timestamps that have aged out of the window. Must be
// called with the lock held.
func (l *rateLimiter) prune(now time.Time) {
	drop := 0
	for _, ts := range l.sent {
		if now.Sub(ts) < l.window {
			break
		}
		drop++
	}
	l.sent = l.sent[drop:]
}
