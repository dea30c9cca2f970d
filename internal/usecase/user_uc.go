package usecase

import (
	"context"
	"errors"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"
	"telegram-vpn-orders/internal/infra/logging"
	"telegram-vpn-orders/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase records chat participants as they show up.
type UserUseCase interface {
	// Track creates the user on first sight and bumps last activity otherwise.
	Track(ctx context.Context, telegramID, username, firstName, lastName string) (*model.ChatUser, error)
	Get(ctx context.Context, telegramID string) (*model.ChatUser, error)
	Count(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, logger *zerolog.Logger) *userUC {
	return &userUC{users: users, log: logger}
}

func (u *userUC) Track(ctx context.Context, telegramID, username, firstName, lastName string) (*model.ChatUser, error) {
	defer logging.TraceDuration(u.log, "UserUC.Track")()

	existing, err := u.users.FindByTelegramID(ctx, telegramID)
	if err == nil {
		if err := u.users.Touch(ctx, telegramID); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	nu, err := model.NewChatUser(telegramID, username, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := u.users.Create(ctx, nu); err != nil {
		return nil, err
	}
	metrics.IncUsersRegistered()
	logging.With(ctx, u.log).Info().Str("username", nu.Username).Msg("new user registered")
	return nu, nil
}

func (u *userUC) Get(ctx context.Context, telegramID string) (*model.ChatUser, error) {
	return u.users.FindByTelegramID(ctx, telegramID)
}

func (u *userUC) Count(ctx context.Context) (int, error) {
	defer logging.TraceDuration(u.log, "UserUC.Count")()
	return u.users.Count(ctx)
}
