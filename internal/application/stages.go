package application

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/infra/metrics"
	"telegram-vpn-orders/internal/usecase"

	"github.com/rs/zerolog"
)

// Limiter decides whether a sender may proceed.
type Limiter interface {
	Allow(ctx context.Context, sender string) (bool, error)
}

// Translator renders user-facing texts.
type Translator interface {
	T(key string, args ...interface{}) string
}

// DefaultStages returns guard, rate limit, logging and activity tracking, in that order.
// known tells the logging stage which commands have a route.
func DefaultStages(msg adapter.Messenger, tr Translator, limiter Limiter, users usecase.UserUseCase, known func(cmd string) bool, logger *zerolog.Logger) []Stage {
	return []Stage{
		NewGuardStage(msg, tr, logger),
		NewRateLimitStage(limiter, msg, tr, logger),
		NewLoggingStage(known, logger),
		NewActivityStage(users, logger),
	}
}

// GuardStage contains every failure of the stages after it, panics included. The sender
// gets one generic apology and the error never reaches the transport.
type GuardStage struct {
	msg adapter.Messenger
	tr  Translator
	log *zerolog.Logger
}

func NewGuardStage(msg adapter.Messenger, tr Translator, logger *zerolog.Logger) *GuardStage {
	return &GuardStage{msg: msg, tr: tr, log: logger}
}

func (s *GuardStage) Handle(ctx context.Context, ev *Event, next Handler) (err error) {
	var stack []byte
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				stack = debug.Stack()
			}
		}()
		err = next.Handle(ctx, ev)
	}()
	if err == nil {
		return nil
	}

	metrics.IncDispatchFailure()
	l := logging.With(ctx, s.log).Error().Err(err).Str("event", ev.Label())
	if stack != nil {
		l = l.Bytes("stack", stack)
	}
	l.Msg("error handling event")

	if sendErr := s.msg.SendText(ctx, ev.replyTo(), s.tr.T("apology")); sendErr != nil {
		logging.With(ctx, s.log).Error().Err(sendErr).Msg("failed to send error message to user")
	}
	return nil
}

// RateLimitStage stops senders over their budget with a throttling notice. A limiter
// failure lets the event through.
type RateLimitStage struct {
	limiter Limiter
	msg     adapter.Messenger
	tr      Translator
	log     *zerolog.Logger
}

func NewRateLimitStage(limiter Limiter, msg adapter.Messenger, tr Translator, logger *zerolog.Logger) *RateLimitStage {
	return &RateLimitStage{limiter: limiter, msg: msg, tr: tr, log: logger}
}

func (s *RateLimitStage) Handle(ctx context.Context, ev *Event, next Handler) error {
	if ev.SenderID == "" {
		return next.Handle(ctx, ev)
	}
	ok, err := s.limiter.Allow(ctx, ev.SenderID)
	if err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable, allowing event")
		return next.Handle(ctx, ev)
	}
	if ok {
		return next.Handle(ctx, ev)
	}

	metrics.IncRateLimitTriggered()
	logging.With(ctx, s.log).Warn().Str("event", ev.Label()).Msg("rate limit exceeded")
	if ev.Kind == EventCallback && ev.CallbackID != "" {
		_ = s.msg.AnswerCallback(ctx, ev.CallbackID, "")
	}
	return s.msg.SendText(ctx, ev.replyTo(), s.tr.T("throttled"))
}

// LoggingStage records the event and how long the rest of the chain took.
type LoggingStage struct {
	known func(cmd string) bool
	log   *zerolog.Logger
}

func NewLoggingStage(known func(cmd string) bool, logger *zerolog.Logger) *LoggingStage {
	return &LoggingStage{known: known, log: logger}
}

func (s *LoggingStage) Handle(ctx context.Context, ev *Event, next Handler) error {
	start := time.Now()
	l := logging.With(ctx, s.log)
	l.Debug().Str("kind", string(ev.Kind)).Str("event", ev.Label()).Msg("incoming event")
	if ev.Kind == EventCommand {
		metrics.IncTelegramCommand(ev.Label(), s.known != nil && s.known(ev.Command))
	}

	err := next.Handle(ctx, ev)

	elapsed := time.Since(start)
	metrics.ObserveDispatch(string(ev.Kind), elapsed.Seconds())
	l.Info().
		Str("kind", string(ev.Kind)).
		Str("event", ev.Label()).
		Dur("latency", elapsed).
		Bool("failed", err != nil).
		Msg("event processed")
	return err
}

// ActivityStage records the sender as a ChatUser. Its failures are logged and swallowed.
type ActivityStage struct {
	users usecase.UserUseCase
	log   *zerolog.Logger
}

func NewActivityStage(users usecase.UserUseCase, logger *zerolog.Logger) *ActivityStage {
	return &ActivityStage{users: users, log: logger}
}

func (s *ActivityStage) Handle(ctx context.Context, ev *Event, next Handler) error {
	if ev.SenderID != "" {
		if _, err := s.users.Track(ctx, ev.SenderID, ev.Username, ev.FirstName, ev.LastName); err != nil {
			logging.With(ctx, s.log).Error().Err(err).Msg("failed to update user from event")
		}
	}
	return next.Handle(ctx, ev)
}
