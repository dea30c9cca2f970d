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

var _ repository.OrderRepository = (*PostgresOrderRepo)(nil)

type PostgresOrderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresOrderRepo(pool *pgxpool.Pool) *PostgresOrderRepo {
	return &PostgresOrderRepo{pool: pool}
}

const orderColumns = `id, user_id, plan_id, status, created_at, updated_at`

func (r *PostgresOrderRepo) Create(ctx context.Context, userID string, planID int64) (*model.Order, error) {
	const sql = `
INSERT INTO orders (user_id, plan_id, status)
VALUES ($1, $2, 'pending')
RETURNING ` + orderColumns + `;
`
	o, err := scanOrder(r.pool.QueryRow(ctx, sql, userID, planID))
	if err != nil {
		return nil, wrap("Create order", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("FindByID order", err)
	}
	return o, nil
}

func (r *PostgresOrderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC;`, userID)
	if err != nil {
		return nil, wrap("ListByUser orders", err)
	}
	defer rows.Close()

	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("ListByUser orders", err)
	}
	return out, nil
}

func (r *PostgresOrderRepo) FindLatestByUser(ctx context.Context, userID string, statuses ...model.OrderStatus) (*model.Order, error) {
	if len(statuses) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	const sql = `
SELECT ` + orderColumns + `
  FROM orders
 WHERE user_id = $1 AND status = ANY($2)
 ORDER BY created_at DESC, id DESC
 LIMIT 1;
`
	o, err := scanOrder(r.pool.QueryRow(ctx, sql, userID, names))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("FindLatestByUser order", err)
	}
	return o, nil
}

// UpdateStatusIf is a compare-and-set on status; a concurrent writer makes it a no-op.
func (r *PostgresOrderRepo) UpdateStatusIf(ctx context.Context, id int64, from, to model.OrderStatus) (*model.Order, bool, error) {
	const sql = `
UPDATE orders
   SET status = $3, updated_at = NOW()
 WHERE id = $1 AND status = $2
RETURNING ` + orderColumns + `;
`
	o, err := scanOrder(r.pool.QueryRow(ctx, sql, id, string(from), string(to)))
	if err == nil {
		return o, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrap("UpdateStatusIf order", err)
	}

	cur, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return cur, false, nil
}

func (r *PostgresOrderRepo) CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status;`)
	if err != nil {
		return nil, wrap("CountByStatus orders", err)
	}
	defer rows.Close()

	out := make(map[model.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrap("scan order count", err)
		}
		out[model.OrderStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("CountByStatus orders", err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var status string
	if err := row.Scan(&o.ID, &o.UserID, &o.PlanID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}
