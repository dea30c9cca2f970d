package usecase

import (
	"context"
	"strings"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ LogUseCase = (*logUC)(nil)

type LogUseCase interface {
	List(ctx context.Context, level string, limit int) ([]*model.LogEntry, error)
	Clear(ctx context.Context) error
}

type logUC struct {
	repo repository.LogRepository
	log  *zerolog.Logger
}

func NewLogUseCase(repo repository.LogRepository, logger *zerolog.Logger) *logUC {
	return &logUC{repo: repo, log: logger}
}

func (uc *logUC) List(ctx context.Context, level string, limit int) ([]*model.LogEntry, error) {
	return uc.repo.List(ctx, strings.ToLower(strings.TrimSpace(level)), limit)
}

func (uc *logUC) Clear(ctx context.Context) error {
	if err := uc.repo.Clear(ctx); err != nil {
		return err
	}
	uc.log.Info().Msg("logs cleared")
	return nil
}
