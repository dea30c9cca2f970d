package application

import (
	"context"
	"errors"
	"fmt"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/logging"
)

func (r *Router) handleStart(ctx context.Context, ev *Event) error {
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("start"))
}

func (r *Router) handleHelp(ctx context.Context, ev *Event) error {
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("help"))
}

func (r *Router) handlePlans(ctx context.Context, ev *Event) error {
	plans, err := r.plans.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("plans_empty"))
	}

	rows := make([][]adapter.InlineButton, 0, len(plans))
	for _, p := range plans {
		rows = append(rows, []adapter.InlineButton{{
			Text: r.tr.T("plan_button", p.Name, FormatPrice(p.PriceCents), FormatDuration(p.DurationDays)),
			Data: fmt.Sprintf("select_plan:%d", p.ID),
		}})
	}
	return r.msg.SendButtons(ctx, ev.replyTo(), r.tr.T("plans_title"), rows)
}

// handleSelectPlan creates a pending order for the chosen plan.
func (r *Router) handleSelectPlan(ctx context.Context, ev *Event, match []string) error {
	planID, ok := parseID(match[1])
	if !ok {
		return r.msg.AnswerCallback(ctx, ev.CallbackID, r.tr.T("plan_unavailable_cb"))
	}

	order, plan, err := r.orders.Create(ctx, ev.SenderID, planID)
	if errors.Is(err, domain.ErrInvalidPlan) {
		if cbErr := r.msg.AnswerCallback(ctx, ev.CallbackID, r.tr.T("plan_unavailable_cb")); cbErr != nil {
			logging.With(ctx, r.log).Warn().Err(cbErr).Msg("failed to answer callback")
		}
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("plan_unavailable"))
	}
	if err != nil {
		return err
	}

	if cbErr := r.msg.AnswerCallback(ctx, ev.CallbackID, r.tr.T("plan_selected_cb", plan.Name)); cbErr != nil {
		logging.With(ctx, r.log).Warn().Err(cbErr).Msg("failed to answer callback")
	}
	logging.With(ctx, r.log).Info().Int64("order_id", order.ID).Int64("plan_id", plan.ID).Msg("plan selected")

	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("plan_selected",
		plan.Name, FormatPrice(plan.PriceCents), FormatDuration(plan.DurationDays), plan.Description))
}

// handlePaymentProof marks the sender's active order paid and forwards the photo to the admin.
func (r *Router) handlePaymentProof(ctx context.Context, ev *Event) error {
	l := logging.With(ctx, r.log)

	order, err := r.orders.FindActiveOrder(ctx, ev.SenderID)
	if errors.Is(err, domain.ErrNoEligibleOrder) {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("no_pending_order"))
	}
	if err != nil {
		return err
	}

	cfg, err := r.admins.Config(ctx)
	if err != nil {
		return err
	}
	if cfg.AdminID == "" {
		l.Error().Int64("order_id", order.ID).Msg("payment proof received but no admin is configured")
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("admin_not_configured"))
	}

	plan, err := r.plans.Get(ctx, order.PlanID)
	if err != nil {
		return err
	}

	// Persist first; a crash after this point leaves a paid order and a retryable forward.
	order, err = r.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		return err
	}

	caption := r.tr.T("proof_caption",
		ev.SenderID, order.ID, plan.Name, FormatPrice(plan.PriceCents), ev.SenderID)
	if err := r.msg.SendPhoto(ctx, cfg.AdminID, ev.PhotoRef, caption); err != nil {
		l.Error().Err(err).Str("admin_id", cfg.AdminID).Int64("order_id", order.ID).Msg("failed to forward payment proof")
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("proof_forward_failed"))
	}

	l.Info().Int64("order_id", order.ID).Msg("payment proof forwarded to admin")
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("proof_received", plan.Name, FormatPrice(plan.PriceCents)))
}

func (r *Router) handleStatus(ctx context.Context, ev *Event) error {
	order, err := r.orders.FindActiveOrder(ctx, ev.SenderID)
	if errors.Is(err, domain.ErrNoEligibleOrder) {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("status_none"))
	}
	if err != nil {
		return err
	}
	plan := r.planOrPlaceholder(ctx, order.PlanID)
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("status_active",
		order.ID, plan.Name, FormatPrice(plan.PriceCents), r.tr.T("status_"+string(order.Status))))
}

func (r *Router) handleCancel(ctx context.Context, ev *Event) error {
	order, err := r.orders.CancelActive(ctx, ev.SenderID, ev.SenderID)
	if errors.Is(err, domain.ErrNoEligibleOrder) || errors.Is(err, domain.ErrInvalidTransition) {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("cancel_none"))
	}
	if err != nil {
		return err
	}
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("cancel_done", order.ID))
}

// handleCompleteOrder fulfills the target's latest paid order, then notifies both sides.
// A failed customer notice is logged only; the order is already completed.
func (r *Router) handleCompleteOrder(ctx context.Context, ev *Event) error {
	target := ev.FirstArg()
	if target == "" {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("completeorder_usage"))
	}

	order, err := r.orders.Complete(ctx, target, ev.SenderID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("admin_only"))
	case errors.Is(err, domain.ErrNoEligibleOrder), errors.Is(err, domain.ErrInvalidTransition):
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("no_paid_orders", target))
	case err != nil:
		return err
	}

	plan := r.planOrPlaceholder(ctx, order.PlanID)
	if err := r.msg.SendText(ctx, target, r.tr.T("order_completed_user", plan.Name)); err != nil {
		logging.With(ctx, r.log).Error().Err(err).Str("target_user_id", target).Msg("failed to notify customer of completion")
	}
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("order_completed_admin", target, plan.Name, order.ID))
}

func (r *Router) handleCancelOrder(ctx context.Context, ev *Event) error {
	target := ev.FirstArg()
	if target == "" {
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("cancelorder_usage"))
	}

	order, err := r.orders.CancelActive(ctx, target, ev.SenderID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("admin_only"))
	case errors.Is(err, domain.ErrNoEligibleOrder), errors.Is(err, domain.ErrInvalidTransition):
		return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("no_active_order_for", target))
	case err != nil:
		return err
	}

	plan := r.planOrPlaceholder(ctx, order.PlanID)
	if err := r.msg.SendText(ctx, target, r.tr.T("order_cancelled_user", plan.Name)); err != nil {
		logging.With(ctx, r.log).Error().Err(err).Str("target_user_id", target).Msg("failed to notify customer of cancellation")
	}
	return r.msg.SendText(ctx, ev.replyTo(), r.tr.T("order_cancelled_admin", order.ID, target))
}

// planOrPlaceholder is for display only; orders keep their plan id even if the plan row
// cannot be read.
func (r *Router) planOrPlaceholder(ctx context.Context, planID int64) *model.Plan {
	plan, err := r.plans.Get(ctx, planID)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Int64("plan_id", planID).Msg("plan lookup failed")
		return &model.Plan{ID: planID, Name: r.tr.T("unknown_plan")}
	}
	return plan
}
