package repository

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
)

// ConfigRepository stores the singleton AdminConfig.
type ConfigRepository interface {
	// Get returns domain.ErrNotFound until the first Save.
	Get(ctx context.Context) (*model.AdminConfig, error)
	// Save upserts: creates the singleton from defaults+patch, or merges patch into it.
	Save(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error)
}
