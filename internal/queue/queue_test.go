package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock advances only when the worker sleeps, so pacing waits are
// observable without real delays.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

func TestSubmitPreservesOrder(t *testing.T) {
	q := New(time.Millisecond, zerolog.Nop())

	var mu sync.Mutex
	var order []int
	var futures []*Future
	for i := 0; i < 5; i++ {
		i := i
		futures = append(futures, q.Submit(func(ctx context.Context) (interface{}, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i, f := range futures {
		value, err := f.Wait(ctx)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		if value.(int) != i {
			t.Errorf("request %d returned %v", i, value)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("execution order %v, want ascending", order)
		}
	}
}

func TestPacingEnforcesMinInterval(t *testing.T) {
	clock := newFakeClock()
	q := New(800*time.Millisecond, zerolog.Nop())
	q.SetClock(clock.Now, clock.Sleep)

	var futures []*Future
	for i := 0; i < 3; i++ {
		futures = append(futures, q.Submit(func(ctx context.Context) (interface{}, error) {
			return nil, nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	// First dispatch is immediate; the two behind it each wait a full
	// interval because the fake clock only moves during sleeps.
	sleeps := clock.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("got %d pacing sleeps, want 2: %v", len(sleeps), sleeps)
	}
	for _, d := range sleeps {
		if d != 800*time.Millisecond {
			t.Errorf("pacing sleep %v, want 800ms", d)
		}
	}
}

func TestFailureDoesNotBlockQueue(t *testing.T) {
	q := New(time.Millisecond, zerolog.Nop())

	failing := q.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("provider exploded")
	})
	succeeding := q.Submit(func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := failing.Wait(ctx); err == nil {
		t.Fatal("expected error from failing invocation")
	}
	value, err := succeeding.Wait(ctx)
	if err != nil {
		t.Fatalf("queued request behind a failure did not run: %v", err)
	}
	if value != "ok" {
		t.Errorf("got %v, want ok", value)
	}

	stats := q.GetStats()
	if stats.Total != 2 || stats.Success != 1 || stats.Failure != 1 {
		t.Errorf("stats = %+v, want total 2, success 1, failure 1", stats)
	}
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	q := New(time.Millisecond, zerolog.Nop())

	release := make(chan struct{})
	blocked := q.Submit(func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := blocked.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}

	// The invocation still completes on the worker after the caller left
	close(release)
}

func TestStatsTrackQueueDepth(t *testing.T) {
	q := New(time.Millisecond, zerolog.Nop())

	release := make(chan struct{})
	first := q.Submit(func(ctx context.Context) (interface{}, error) {
		<-release
		return nil, nil
	})
	second := q.Submit(func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})

	if depth := q.GetStats().MaxQueueDepth; depth < 1 {
		t.Errorf("max queue depth %d, want at least 1", depth)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	first.Wait(ctx)
	second.Wait(ctx)

	if depth := q.GetStats().CurrentQueueDepth; depth != 0 {
		t.Errorf("drained queue depth %d, want 0", depth)
	}
}
