package postgres

import (
	"context"
	"errors"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) FindByTelegramID(ctx context.Context, telegramID string) (*model.ChatUser, error) {
	const q = `
SELECT id, telegram_id, username, first_name, last_name, joined_at, last_active_at
  FROM users WHERE telegram_id = $1;
`
	var u model.ChatUser
	err := r.pool.QueryRow(ctx, q, telegramID).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.JoinedAt, &u.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("FindByTelegramID user", err)
	}
	return &u, nil
}

// Create is idempotent on telegram_id: a concurrent first contact keeps the earlier row,
// and u is filled from it.
func (r *PostgresUserRepo) Create(ctx context.Context, u *model.ChatUser) error {
	const q = `
INSERT INTO users (telegram_id, username, first_name, last_name, joined_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (telegram_id) DO NOTHING
RETURNING id;
`
	err := r.pool.QueryRow(ctx, q,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.JoinedAt, u.LastActiveAt,
	).Scan(&u.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return wrap("Create user", err)
	}

	existing, err := r.FindByTelegramID(ctx, u.TelegramID)
	if err != nil {
		return err
	}
	*u = *existing
	return nil
}

func (r *PostgresUserRepo) Touch(ctx context.Context, telegramID string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE users SET last_active_at = NOW() WHERE telegram_id = $1;`, telegramID)
	if err != nil {
		return wrap("Touch user", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, wrap("Count users", err)
	}
	return n, nil
}
