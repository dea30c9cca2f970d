package repository

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
)

// -----------------------------
// Chat users
// -----------------------------

type UserRepository interface {
	// FindByTelegramID returns domain.ErrNotFound when the identity was never seen.
	FindByTelegramID(ctx context.Context, telegramID string) (*model.ChatUser, error)
	Create(ctx context.Context, u *model.ChatUser) error
	// Touch bumps LastActiveAt to now.
	Touch(ctx context.Context, telegramID string) error
	Count(ctx context.Context) (int, error)
}
