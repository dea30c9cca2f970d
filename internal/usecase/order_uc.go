package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

// OrderUseCase owns the order state machine: pending -> paid -> completed, and
// pending|paid -> cancelled. Every transition is a conditional update in the
// repository, so two concurrent callers can never both move the same order.
type OrderUseCase interface {
	Create(ctx context.Context, userID string, planID int64) (*model.Order, *model.Plan, error)
	MarkPaid(ctx context.Context, orderID int64) (*model.Order, error)
	Complete(ctx context.Context, targetUserID, actorID string) (*model.Order, error)
	Cancel(ctx context.Context, orderID int64) (*model.Order, error)
	CancelActive(ctx context.Context, targetUserID, actorID string) (*model.Order, error)
	// FindActiveOrder returns domain.ErrNoEligibleOrder when the user has no pending or paid order.
	FindActiveOrder(ctx context.Context, userID string) (*model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}

// AdminChecker resolves whether an identity may run fulfillment actions.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type orderUC struct {
	orders repository.OrderRepository
	plans  repository.PlanRepository
	admins AdminChecker
	log    *zerolog.Logger
}

func NewOrderUseCase(orders repository.OrderRepository, plans repository.PlanRepository, admins AdminChecker, logger *zerolog.Logger) *orderUC {
	l := logger.With().Str("component", "order_uc").Logger()
	return &orderUC{orders: orders, plans: plans, admins: admins, log: &l}
}

func (u *orderUC) Create(ctx context.Context, userID string, planID int64) (*model.Order, *model.Plan, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Create")()

	plan, err := u.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrInvalidPlan
		}
		return nil, nil, err
	}
	if !plan.Purchasable() {
		return nil, nil, domain.ErrInvalidPlan
	}

	order, err := u.orders.Create(ctx, userID, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	metrics.IncOrderTransition(model.OrderStatusPending)
	logging.With(ctx, u.log).Info().
		Int64("order_id", order.ID).Int64("plan_id", plan.ID).Str("plan", plan.Name).
		Msg("order created")
	return order, plan, nil
}

// MarkPaid is idempotent for an order that is already paid; duplicate proofs are expected.
func (u *orderUC) MarkPaid(ctx context.Context, orderID int64) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.MarkPaid")()

	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoEligibleOrder
		}
		return nil, err
	}

	switch order.Status {
	case model.OrderStatusPaid:
		return order, nil
	case model.OrderStatusPending:
	default:
		return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
	}

	cur, applied, err := u.orders.UpdateStatusIf(ctx, order.ID, model.OrderStatusPending, model.OrderStatusPaid)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race; another proof for the same order is as good as ours.
		if cur.Status == model.OrderStatusPaid {
			return cur, nil
		}
		return nil, fmt.Errorf("order %d is %s: %w", cur.ID, cur.Status, domain.ErrInvalidTransition)
	}

	metrics.IncOrderTransition(model.OrderStatusPaid)
	logging.With(ctx, u.log).Info().Int64("order_id", cur.ID).Msg("order marked paid")
	return cur, nil
}

// Complete fulfills the target user's most recent paid order.
func (u *orderUC) Complete(ctx context.Context, targetUserID, actorID string) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Complete")()

	if err := u.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}

	order, err := u.orders.FindLatestByUser(ctx, targetUserID, model.OrderStatusPaid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoEligibleOrder
		}
		return nil, err
	}

	cur, applied, err := u.orders.UpdateStatusIf(ctx, order.ID, model.OrderStatusPaid, model.OrderStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("order %d is %s: %w", cur.ID, cur.Status, domain.ErrInvalidTransition)
	}

	metrics.IncOrderTransition(model.OrderStatusCompleted)
	logging.With(ctx, u.log).Info().
		Str("admin_id", actorID).Str("target_user_id", targetUserID).Int64("order_id", cur.ID).
		Msg("order completed")
	return cur, nil
}

func (u *orderUC) Cancel(ctx context.Context, orderID int64) (*model.Order, error) {
	defer logging.TraceDuration(u.log, "OrderUC.Cancel")()

	order, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoEligibleOrder
		}
		return nil, err
	}

	// A concurrent pending -> paid may land between the read and the update; retry from the
	// status we lost to as long as cancelling is still allowed from it.
	for attempt := 0; attempt < 3; attempt++ {
		if !order.Status.CanTransition(model.OrderStatusCancelled) {
			return nil, fmt.Errorf("order %d is %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
		}
		cur, applied, err := u.orders.UpdateStatusIf(ctx, order.ID, order.Status, model.OrderStatusCancelled)
		if err != nil {
			return nil, err
		}
		if applied {
			metrics.IncOrderTransition(model.OrderStatusCancelled)
			logging.With(ctx, u.log).Info().Int64("order_id", cur.ID).Msg("order cancelled")
			return cur, nil
		}
		order = cur
	}
	return nil, fmt.Errorf("order %d: %w", order.ID, domain.ErrInvalidTransition)
}

// CancelActive cancels the target's active order. Users may cancel their own; cancelling
// someone else's requires admin rights.
func (u *orderUC) CancelActive(ctx context.Context, targetUserID, actorID string) (*model.Order, error) {
	if targetUserID != actorID {
		if err := u.requireAdmin(ctx, actorID); err != nil {
			return nil, err
		}
	}
	order, err := u.FindActiveOrder(ctx, targetUserID)
	if err != nil {
		return nil, err
	}
	return u.Cancel(ctx, order.ID)
}

func (u *orderUC) FindActiveOrder(ctx context.Context, userID string) (*model.Order, error) {
	order, err := u.orders.FindLatestByUser(ctx, userID, model.ActiveOrderStatuses...)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoEligibleOrder
		}
		return nil, err
	}
	return order, nil
}

func (u *orderUC) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	metrics.SetOrdersTotal(counts)
	return counts, nil
}

func (u *orderUC) requireAdmin(ctx context.Context, actorID string) error {
	ok, err := u.admins.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		logging.With(ctx, u.log).Warn().Str("actor_id", actorID).Msg("non-admin attempted an admin action")
		return domain.ErrUnauthorized
	}
	return nil
}
