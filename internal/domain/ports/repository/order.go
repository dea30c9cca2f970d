package repository

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	Create(ctx context.Context, userID string, planID int64) (*model.Order, error)
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)

	// FindLatestByUser returns the most recently created order of the user whose status is one
	// of statuses (created_at DESC, id DESC). domain.ErrNotFound when none matches.
	FindLatestByUser(ctx context.Context, userID string, statuses ...model.OrderStatus) (*model.Order, error)

	// UpdateStatusIf moves the order to `to` only while its status is still `from`.
	// applied is false when the precondition no longer held; the current order is still
	// returned in that case. domain.ErrNotFound when the id does not exist.
	UpdateStatusIf(ctx context.Context, id int64, from, to model.OrderStatus) (order *model.Order, applied bool, err error)

	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}
