package postgres

import (
	"context"
	"errors"
	"time"

	"telegram-vpn-orders/internal/domain"
	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.ConfigRepository = (*PostgresConfigRepo)(nil)

// PostgresConfigRepo keeps the admin configuration as a single row with id = 1.
type PostgresConfigRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresConfigRepo(pool *pgxpool.Pool) *PostgresConfigRepo {
	return &PostgresConfigRepo{pool: pool}
}

func (r *PostgresConfigRepo) Get(ctx context.Context) (*model.AdminConfig, error) {
	const q = `
SELECT admin_id, log_level, health_check_interval, detailed_logging, last_started
  FROM admin_config WHERE id = 1;
`
	c, err := scanConfig(r.pool.QueryRow(ctx, q))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrap("Get config", err)
	}
	return c, nil
}

func (r *PostgresConfigRepo) Save(ctx context.Context, patch model.ConfigPatch) (*model.AdminConfig, error) {
	// The insert branch starts from the defaults; the update branch keeps columns whose
	// patch value is NULL.
	const q = `
INSERT INTO admin_config (id, admin_id, log_level, health_check_interval, detailed_logging, last_started)
VALUES (1, $1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
  admin_id              = COALESCE($6::text, admin_config.admin_id),
  log_level             = COALESCE($7::text, admin_config.log_level),
  health_check_interval = COALESCE($8::integer, admin_config.health_check_interval),
  detailed_logging      = COALESCE($9::boolean, admin_config.detailed_logging),
  last_started          = COALESCE($10::timestamptz, admin_config.last_started)
RETURNING admin_id, log_level, health_check_interval, detailed_logging, last_started;
`
	seed := patch.Apply(model.DefaultAdminConfig())
	var initStarted *time.Time
	if !seed.LastStarted.IsZero() {
		initStarted = &seed.LastStarted
	}

	adminID, logLevel, interval := patch.AdminID, patch.LogLevel, patch.HealthCheckInterval
	if adminID != nil && *adminID == "" {
		adminID = nil
	}
	if logLevel != nil && *logLevel == "" {
		logLevel = nil
	}
	if interval != nil && *interval <= 0 {
		interval = nil
	}

	c, err := scanConfig(r.pool.QueryRow(ctx, q,
		seed.AdminID, seed.LogLevel, seed.HealthCheckInterval, seed.DetailedLogging, initStarted,
		adminID, logLevel, interval, patch.DetailedLogging, patch.LastStarted,
	))
	if err != nil {
		return nil, wrap("Save config", err)
	}
	return c, nil
}

func scanConfig(row pgx.Row) (*model.AdminConfig, error) {
	var c model.AdminConfig
	var started *time.Time
	if err := row.Scan(&c.AdminID, &c.LogLevel, &c.HealthCheckInterval, &c.DetailedLogging, &started); err != nil {
		return nil, err
	}
	if started != nil {
		c.LastStarted = *started
	}
	return &c, nil
}
