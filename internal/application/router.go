package application

import (
	"context"
	"regexp"
	"strconv"

	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/infra/metrics"
	"telegram-vpn-orders/internal/usecase"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ Handler = (*Router)(nil)

type eventHandler func(ctx context.Context, ev *Event) error

type callbackRoute struct {
	pattern *regexp.Regexp
	handle  func(ctx context.Context, ev *Event, match []string) error
}

// Router is the last handler of the chain. It maps commands, callback payloads and photos
// to the handlers below; everything else gets the help hint.
type Router struct {
	orders usecase.OrderUseCase
	plans  usecase.PlanUseCase
	admins usecase.AdminUseCase
	msg    adapter.Messenger
	tr     Translator
	log    *zerolog.Logger

	commands  map[string]eventHandler
	callbacks []callbackRoute
}

func NewRouter(
	orders usecase.OrderUseCase,
	plans usecase.PlanUseCase,
	admins usecase.AdminUseCase,
	msg adapter.Messenger,
	tr Translator,
	logger *zerolog.Logger,
) *Router {
	l := logger.With().Str("component", "router").Logger()
	r := &Router{orders: orders, plans: plans, admins: admins, msg: msg, tr: tr, log: &l}
	r.commands = r.commandRoutes()
	r.callbacks = r.callbackRoutes()
	return r
}

// Known reports whether cmd has a route.
func (r *Router) Known(cmd string) bool {
	_, ok := r.commands[cmd]
	return ok
}

func (r *Router) commandRoutes() map[string]eventHandler {
	return map[string]eventHandler{
		"start":  r.handleStart,
		"help":   r.handleHelp,
		"plans":  r.handlePlans,
		"status": r.handleStatus,
		"cancel": r.handleCancel,

		"completeorder": r.adminOnly(r.handleCompleteOrder),
		"cancelorder":   r.adminOnly(r.handleCancelOrder),
	}
}

func (r *Router) callbackRoutes() []callbackRoute {
	return []callbackRoute{
		{pattern: regexp.MustCompile(`^select_plan:(\d+)$`), handle: r.handleSelectPlan},
	}
}

func (r *Router) Handle(ctx context.Context, ev *Event) error {
	switch ev.Kind {
	case EventCommand:
		if h, ok := r.commands[ev.Command]; ok {
			return h(ctx, ev)
		}
	case EventCallback:
		for _, route := range r.callbacks {
			if m := route.pattern.FindStringSubmatch(ev.CallbackData); m != nil {
				return route.handle(ctx, ev, m)
			}
		}
		// Unknown payloads are acknowledged so the client stops its spinner, nothing else.
		logging.With(ctx, r.log).Debug().Str("data", ev.CallbackData).Msg("unknown callback ignored")
		return r.msg.AnswerCallback(ctx, ev.CallbackID, "")
	case EventPhoto:
		return r.handlePaymentProof(ctx, ev)
	}
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("fallback"))
}

func (r *Router) adminOnly(next eventHandler) eventHandler {
	return func(ctx context.Context, ev *Event) error {
		ok, err := r.admins.IsAdmin(ctx, ev.SenderID)
		if err != nil {
			return err
		}
		if !ok {
			metrics.IncAdminCommand(ev.Label(), "unauthorized")
			logging.With(ctx, r.log).Warn().Str("command", ev.Label()).Msg("admin command refused")
			return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("admin_only"))
		}
		metrics.IncAdminCommand(ev.Label(), "authorized")
		return next(ctx, ev)
	}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
