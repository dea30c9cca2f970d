//go:build !integration

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("should throttle the 31st event and reset after the window", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		l := New(time.Minute, 30).WithClock(clock.Now)

		for i := 1; i <= 30; i++ {
			ok, _ := l.Allow(ctx, "u1")
			if !ok {
				t.Fatalf("event %d should be allowed", i)
			}
			clock.Advance(time.Second)
		}
		if ok, _ := l.Allow(ctx, "u1"); ok {
			t.Fatal("31st event within the window should be throttled")
		}

		clock.Advance(time.Minute)
		if ok, _ := l.Allow(ctx, "u1"); !ok {
			t.Fatal("first event of a new window should be allowed")
		}
	})

	t.Run("should not reset at exactly the window length", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		l := New(time.Minute, 1).WithClock(clock.Now)
		_, _ = l.Allow(ctx, "u1")
		clock.Advance(time.Minute)
		if ok, _ := l.Allow(ctx, "u1"); ok {
			t.Fatal("window resets only once elapsed time exceeds its length")
		}
	})

	t.Run("should count senders independently", func(t *testing.T) {
		l := New(time.Minute, 1)
		if ok, _ := l.Allow(ctx, "a"); !ok {
			t.Fatal("a should be allowed")
		}
		if ok, _ := l.Allow(ctx, "b"); !ok {
			t.Fatal("b should be allowed")
		}
		if ok, _ := l.Allow(ctx, "a"); ok {
			t.Fatal("second event from a should be throttled")
		}
	})

	t.Run("should admit exactly the cap under concurrent events from one sender", func(t *testing.T) {
		l := New(time.Minute, 30)
		var allowed int64
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := l.Allow(ctx, "racer"); ok {
					atomic.AddInt64(&allowed, 1)
				}
			}()
		}
		wg.Wait()
		if allowed != 30 {
			t.Fatalf("expected exactly 30 allowed events, got %d", allowed)
		}
	})

	t.Run("should prune expired senders from a crowded shard", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		l := New(time.Minute, 30).WithClock(clock.Now)
		for i := 0; i < shardCount*pruneThreshold; i++ {
			_, _ = l.Allow(ctx, fmt.Sprintf("s-%d", i))
		}
		before := l.Len()
		clock.Advance(2 * time.Minute)
		for i := 0; i < shardCount*2; i++ {
			_, _ = l.Allow(ctx, fmt.Sprintf("fresh-%d", i))
		}
		if l.Len() >= before {
			t.Fatalf("expected pruning to shrink the map, before=%d after=%d", before, l.Len())
		}
	})
}
