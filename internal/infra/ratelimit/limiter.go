// Package ratelimit throttles chat senders with a per-sender window counter held in memory.
package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const (
	DefaultWindow = time.Minute
	DefaultLimit  = 30

	shardCount = 32
	// A shard holding more entries than this drops expired windows on the next write.
	pruneThreshold = 1024
)

type window struct {
	count int
	start time.Time
}

type shard struct {
	mu      sync.Mutex
	senders map[string]*window
}

// Limiter counts events per sender inside a window that restarts once it has fully
// elapsed. Each sender's read-check-increment runs under its shard lock, so concurrent
// events from one sender can never slip past the cap.
type Limiter struct {
	window time.Duration
	limit  int
	now    func() time.Time
	shards [shardCount]shard
}

func New(win time.Duration, limit int) *Limiter {
	if win <= 0 {
		win = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{window: win, limit: limit, now: time.Now}
	for i := range l.shards {
		l.shards[i].senders = make(map[string]*window)
	}
	return l
}

// WithClock replaces the time source (tests).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) shardFor(sender string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sender))
	return &l.shards[h.Sum32()%shardCount]
}

// Allow records one event for sender and reports whether it is within the cap.
// The error is always nil; it exists to satisfy the shared limiter contract.
func (l *Limiter) Allow(_ context.Context, sender string) (bool, error) {
	now := l.now()
	s := l.shardFor(sender)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.senders[sender]
	if !ok {
		if len(s.senders) >= pruneThreshold {
			l.pruneLocked(s, now)
		}
		w = &window{start: now}
		s.senders[sender] = w
	}
	if now.Sub(w.start) > l.window {
		w.count = 0
		w.start = now
	}
	w.count++
	return w.count <= l.limit, nil
}

func (l *Limiter) pruneLocked(s *shard, now time.Time) {
	for k, w := range s.senders {
		if now.Sub(w.start) > l.window {
			delete(s.senders, k)
		}
	}
}

// Len returns the number of tracked senders.
func (l *Limiter) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.senders)
		s.mu.Unlock()
	}
	return n
}
