package repository

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
)

// PlanRepository is the port for plan persistence. Plans are never deleted.
type PlanRepository interface {
	Save(ctx context.Context, plan *model.Plan) error
	FindByID(ctx context.Context, id int64) (*model.Plan, error)
	ListActive(ctx context.Context) ([]*model.Plan, error)
	ListAll(ctx context.Context) ([]*model.Plan, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error)
}
