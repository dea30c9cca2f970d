//go:build !integration

package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestPool(t *testing.T) {
	t.Run("should run every submitted task", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := NewPool(4, newTestLogger())
		p.Start(ctx)

		var ran int32
		done := make(chan struct{}, 50)
		for i := 0; i < 50; i++ {
			err := p.Submit(ctx, func(context.Context) error {
				atomic.AddInt32(&ran, 1)
				done <- struct{}{}
				return nil
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
		}
		for i := 0; i < 50; i++ {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("timed out after %d tasks", i)
			}
		}
		p.Stop()
		if got := atomic.LoadInt32(&ran); got != 50 {
			t.Errorf("expected 50 tasks to run, got %d", got)
		}
	})

	t.Run("should keep working after a task fails", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p := NewPool(1, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		_ = p.Submit(ctx, func(context.Context) error { return errors.New("boom") })
		done := make(chan struct{})
		_ = p.Submit(ctx, func(context.Context) error { close(done); return nil })

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("second task never ran")
		}
	})

	t.Run("should reject submissions after stop", func(t *testing.T) {
		p := NewPool(1, newTestLogger())
		p.Start(context.Background())
		p.Stop()
		p.Stop()

		err := p.Submit(context.Background(), func(context.Context) error { return nil })
		if !errors.Is(err, ErrPoolStopped) {
			t.Errorf("expected ErrPoolStopped, got %v", err)
		}
	})

	t.Run("should give up when the context is done and the queue is full", func(t *testing.T) {
		p := NewPool(1, newTestLogger()) // not started, queue holds 4
		for i := 0; i < 4; i++ {
			if err := p.Submit(context.Background(), func(context.Context) error { return nil }); err != nil {
				t.Fatalf("Submit %d: %v", i, err)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := p.Submit(ctx, func(context.Context) error { return nil })
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}
