package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carreirahub/carreirahub/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountFilterSQL = `WHERE ($1 = '' OR role = $1)
  AND ($2 = '' OR email ILIKE '%' || $2 || '%' OR name ILIKE '%' || $2 || '%')`

// CountAccounts returns how many accounts match filter.
func (r *Repository) CountAccounts(ctx context.Context, filter ListFilter) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts `+accountFilterSQL,
		string(filter.Role), filter.Query).Scan(&total)
	return total, err
}

// ListAccounts returns limit accounts after offset, newest first.
func (r *Repository) ListAccounts(ctx context.Context, filter ListFilter, limit, offset int) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, role, is_active, created_at FROM accounts `+
		accountFilterSQL+` ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`,
		string(filter.Role), filter.Query, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Account])
}

// SetActive flips the active flag of an account.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
