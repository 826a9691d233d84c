package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository reads audit_logs from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// The actor filter matches the account id or its e-mail.
const timelineSQL = `SELECT l.occurred_at, COALESCE(a.email, l.actor_id, '') AS actor, l.action, l.entity, l.entity_id, l.meta
FROM audit_logs l
LEFT JOIN accounts a ON a.id = l.actor_id
WHERE ($1::timestamptz IS NULL OR l.occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR l.occurred_at < $2)
  AND ($3::text IS NULL OR l.actor_id = $3 OR a.email = lower($3))
  AND ($4::text IS NULL OR l.entity = $4)
  AND ($5::text IS NULL OR l.action = $5)
ORDER BY l.occurred_at DESC, l.id DESC`

// TimelineWindow returns LimitRows entries after OffsetRows.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]Record, error) {
	rows, err := r.pool.Query(ctx, timelineSQL+` OFFSET $6 LIMIT $7`,
		arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action, arg.OffsetRows, arg.LimitRows)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
}

// TimelineAll returns every matching entry.
func (r *PGRepository) TimelineAll(ctx context.Context, arg WindowParams) ([]Record, error) {
	rows, err := r.pool.Query(ctx, timelineSQL, arg.FromAt, arg.ToAt, arg.Actor, arg.Entity, arg.Action)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Record])
}
