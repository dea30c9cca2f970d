package postgres

import (
	"context"
	"encoding/json"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4/pgxpool"
)

var _ repository.LogRepository = (*PostgresLogRepo)(nil)

const defaultLogListLimit = 100

type PostgresLogRepo struct {
	pool      *pgxpool.Pool
	retention int
}

// NewPostgresLogRepo keeps at most retention rows; older rows are dropped on append.
func NewPostgresLogRepo(pool *pgxpool.Pool, retention int) *PostgresLogRepo {
	return &PostgresLogRepo{pool: pool, retention: retention}
}

func (r *PostgresLogRepo) Append(ctx context.Context, e *model.LogEntry) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return wrap("marshal log metadata", err)
		}
		meta = b
	}
	var userID *string
	if e.UserID != "" {
		userID = &e.UserID
	}

	err := withTx(ctx, r.pool, func(q querier) error {
		const ins = `
INSERT INTO logs (level, message, user_id, metadata, timestamp)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
		if err := q.QueryRow(ctx, ins, e.Level, e.Message, userID, meta, e.Timestamp).Scan(&e.ID); err != nil {
			return err
		}
		if r.retention <= 0 {
			return nil
		}
		const trim = `
DELETE FROM logs
 WHERE id <= (SELECT id FROM logs ORDER BY id DESC OFFSET $1 LIMIT 1);
`
		_, err := q.Exec(ctx, trim, r.retention)
		return err
	})
	if err != nil {
		return wrap("Append log", err)
	}
	return nil
}

func (r *PostgresLogRepo) List(ctx context.Context, level string, limit int) ([]*model.LogEntry, error) {
	if limit <= 0 {
		limit = defaultLogListLimit
	}
	const q = `
SELECT id, level, message, COALESCE(user_id, ''), metadata, timestamp
  FROM logs
 WHERE ($1 = '' OR level = $1)
 ORDER BY id DESC
 LIMIT $2;
`
	rows, err := r.pool.Query(ctx, q, level, limit)
	if err != nil {
		return nil, wrap("List logs", err)
	}
	defer rows.Close()

	var out []*model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.Level, &e.Message, &e.UserID, &meta, &e.Timestamp); err != nil {
			return nil, wrap("scan log", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &e.Metadata)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("List logs", err)
	}
	return out, nil
}

func (r *PostgresLogRepo) Clear(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `TRUNCATE logs RESTART IDENTITY;`); err != nil {
		return wrap("Clear logs", err)
	}
	return nil
}
