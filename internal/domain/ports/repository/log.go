package repository

import (
	"context"

	"telegram-vpn-orders/internal/domain/model"
)

// -----------------------------
// Persisted logs
// -----------------------------

type LogRepository interface {
	Append(ctx context.Context, e *model.LogEntry) error
	// List returns newest first. An empty level matches every level; limit <= 0 means the default.
	List(ctx context.Context, level string, limit int) ([]*model.LogEntry, error)
	Clear(ctx context.Context) error
}
