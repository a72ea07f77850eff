package notion

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestLimiterDelaysFourthAdmission(t *testing.T) {
	l := newRateLimiter()
	ctx := context.Background()

	var admitted []time.Time
	for i := 0; i < 4; i++ {
		if err := l.wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
		admitted = append(admitted, time.Now())
	}

	burst := admitted[2].Sub(admitted[0])
	if burst > 200*time.Millisecond {
		t.Fatalf("first three admissions took %v, expected no delay", burst)
	}
	gap := admitted[3].Sub(admitted[0])
	if gap < l.window {
		t.Fatalf("fourth admission after %v, want at least %v", gap, l.window)
	}
}

func TestLimiterConcurrentWindowInvariant(t *testing.T) {
	l := newRateLimiter()

	const calls = 7
	var mu sync.Mutex
	var admitted []time.Time
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.wait(context.Background()); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			now := time.Now()
			mu.Lock()
			admitted = append(admitted, now)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(admitted) != calls {
		t.Fatalf("admitted %d calls, want %d", len(admitted), calls)
	}
	sort.Slice(admitted, func(i, j int) bool { return admitted[i].Before(admitted[j]) })

	// Recorded times trail the actual admission instants slightly, so check
	// against a window shrunk below the real one.
	const checkWindow = 900 * time.Millisecond
	for i := range admitted {
		count := 0
		for j := i; j < len(admitted); j++ {
			if admitted[j].Sub(admitted[i]) < checkWindow {
				count++
			}
		}
		if count > l.limit {
			t.Fatalf("%d admissions within %v starting at index %d, want at most %d", count, checkWindow, i, l.limit)
		}
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := newRateLimiter()
	for i := 0; i < l.limit; i++ {
		if err := l.wait(context.Background()); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := l.wait(ctx)
	if err == nil {
		t.Fatalf("expected context error while window is full")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("wait returned after %v, expected prompt cancellation", elapsed)
	}
}
