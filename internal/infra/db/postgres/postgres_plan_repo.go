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

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, description, duration_days, price_cents, traffic_gb, devices, category, is_active, created_at`

// Save inserts a plan with ID 0 (assigning the generated id) and updates it otherwise.
func (r *PostgresPlanRepo) Save(ctx context.Context, plan *model.Plan) error {
	if plan.ID == 0 {
		const sql = `
INSERT INTO plans (name, description, duration_days, price_cents, traffic_gb, devices, category, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id;
`
		err := r.pool.QueryRow(ctx, sql,
			plan.Name, plan.Description, plan.DurationDays, plan.PriceCents,
			plan.TrafficGB, plan.Devices, plan.Category, plan.Active, plan.CreatedAt,
		).Scan(&plan.ID)
		if err != nil {
			return wrap("insert plan", err)
		}
		return nil
	}

	const sql = `
UPDATE plans
   SET name = $2, description = $3, duration_days = $4, price_cents = $5,
       traffic_gb = $6, devices = $7, category = $8, is_active = $9
 WHERE id = $1;
`
	ct, err := r.pool.Exec(ctx, sql,
		plan.ID, plan.Name, plan.Description, plan.DurationDays, plan.PriceCents,
		plan.TrafficGB, plan.Devices, plan.Category, plan.Active,
	)
	if err != nil {
		return wrap("update plan", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, id int64) (*model.Plan, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1;`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("FindByID plan", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context) ([]*model.Plan, error) {
	return r.list(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY price_cents, id;`)
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context) ([]*model.Plan, error) {
	return r.list(ctx, `SELECT `+planColumns+` FROM plans ORDER BY id;`)
}

func (r *PostgresPlanRepo) SetActive(ctx context.Context, id int64, active bool) (*model.Plan, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE plans SET is_active = $2 WHERE id = $1 RETURNING `+planColumns+`;`, id, active)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("SetActive plan", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) list(ctx context.Context, sql string) ([]*model.Plan, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, wrap("list plans", err)
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, wrap("scan plan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("list plans", err)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.DurationDays, &p.PriceCents,
		&p.TrafficGB, &p.Devices, &p.Category, &p.Active, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
