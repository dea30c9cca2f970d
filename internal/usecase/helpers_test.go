//go:build !integration

package usecase_test

import (
	"context"
	"io"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// staticAdmin treats exactly one identity as admin.
type staticAdmin string

func (a staticAdmin) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return userID != "" && userID == string(a), nil
}

// failingOrderRepo lets a test fail individual order operations.
type failingOrderRepo struct {
	repository.OrderRepository
	UpdateStatusIfFunc func(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, bool, error)
}

func (r *failingOrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, bool, error) {
	if r.UpdateStatusIfFunc != nil {
		return r.UpdateStatusIfFunc(ctx, id, from, to)
	}
	return r.OrderRepository.UpdateStatusIf(ctx, id, from, to)
}

// countingConfigRepo counts writes to detect duplicate bootstraps.
type countingConfigRepo struct {
	repository.ConfigRepository
	saves int
}

func (r *countingConfigRepo) Save(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error) {
	r.saves++
	return r.ConfigRepository.Save(ctx, patch)
}
