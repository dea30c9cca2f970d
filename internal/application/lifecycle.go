package application

import (
	"context"
	"errors"
	"sync"

	"telegram-vpn-orders/internal/usecase"

	"github.com/rs/zerolog"
)

// Transport delivers inbound events until ctx is cancelled.
type Transport interface {
	Run(ctx context.Context, dispatch func(ctx context.Context, ev *Event) error) error
	RegisterCommands(ctx context.Context) error
}

// Supervisor is the connection health timer.
type Supervisor interface {
	Start(ctx context.Context)
	Stop()
}

// Lifecycle starts and stops the bot: the transport loop feeding the chain, and the health
// supervisor next to it. Start and Stop are idempotent.
type Lifecycle struct {
	transport  Transport
	chain      *Chain
	supervisor Supervisor
	admins     usecase.AdminUseCase
	log        *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLifecycle(transport Transport, chain *Chain, supervisor Supervisor, admins usecase.AdminUseCase, logger *zerolog.Logger) *Lifecycle {
	l := logger.With().Str("component", "lifecycle").Logger()
	return &Lifecycle{transport: transport, chain: chain, supervisor: supervisor, admins: admins, log: &l}
}

func (lc *Lifecycle) Start(parent context.Context) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.cancel != nil {
		select {
		case <-lc.done:
			// The transport returned on its own; tear down what is left and start over.
			lc.supervisor.Stop()
			lc.cancel()
			lc.cancel = nil
			lc.done = nil
		default:
			return nil
		}
	}

	ctx, cancel := context.WithCancel(parent)
	if err := lc.transport.RegisterCommands(ctx); err != nil {
		lc.log.Warn().Err(err).Msg("failed to register bot commands")
	}
	if err := lc.admins.MarkStarted(ctx); err != nil {
		lc.log.Warn().Err(err).Msg("failed to record start time")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := lc.transport.Run(ctx, lc.chain.Dispatch)
		if err != nil && !errors.Is(err, context.Canceled) {
			lc.log.Error().Err(err).Msg("transport stopped")
		}
	}()
	lc.supervisor.Start(ctx)

	lc.cancel = cancel
	lc.done = done
	lc.log.Info().Msg("bot started")
	return nil
}

// Stop halts the health timer before the transport, then waits for the loop to return.
func (lc *Lifecycle) Stop() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.cancel == nil {
		return
	}
	lc.supervisor.Stop()
	lc.cancel()
	<-lc.done
	lc.cancel = nil
	lc.done = nil
	lc.log.Info().Msg("bot stopped")
}

func (lc *Lifecycle) Running() bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.cancel == nil {
		return false
	}
	select {
	case <-lc.done:
		return false
	default:
		return true
	}
}
