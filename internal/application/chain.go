package application

import (
	"context"

	"telegram-vpn-orders/internal/infra/logging"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, ev *Event) error
}

type HandlerFunc func(ctx context.Context, ev *Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev *Event) error { return f(ctx, ev) }

// Stage is one link of the dispatch chain. It either calls next to continue or returns
// without calling it to stop the event.
type Stage interface {
	Handle(ctx context.Context, ev *Event, next Handler) error
}

type StageFunc func(ctx context.Context, ev *Event, next Handler) error

func (f StageFunc) Handle(ctx context.Context, ev *Event, next Handler) error { return f(ctx, ev, next) }

// Chain runs stages in the order given, ending in the final handler.
type Chain struct {
	stages []Stage
	final  Handler
}

func NewChain(final Handler, stages ...Stage) *Chain {
	return &Chain{stages: stages, final: final}
}

// Dispatch tags ctx with a fresh trace id and the sender, then runs the chain.
func (c *Chain) Dispatch(ctx context.Context, ev *Event) error {
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())
	if ev.SenderID != "" {
		ctx = logging.WithUserID(ctx, ev.SenderID)
	}
	return c.at(0).Handle(ctx, ev)
}

func (c *Chain) at(i int) Handler {
	if i >= len(c.stages) {
		return c.final
	}
	return HandlerFunc(func(ctx context.Context, ev *Event) error {
		return c.stages[i].Handle(ctx, ev, c.at(i+1))
	})
}
