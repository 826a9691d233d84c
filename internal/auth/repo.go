package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carreirahub/carreirahub/internal/platform/db"
	"github.com/carreirahub/carreirahub/internal/profile"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the accounts module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	CreateAccount(ctx context.Context, account Account) error
	UpdateProfile(ctx context.Context, p profile.Profile) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const findByEmailSQL = `SELECT id, name, email, password_hash, role, attributes, is_active, created_at, updated_at
FROM accounts WHERE email = $1`

// FindByEmail fetches an account by e-mail. E-mails are stored lower-cased.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var (
		acc  Account
		role string
	)
	err := r.pool.QueryRow(ctx, findByEmailSQL, normalizeEmail(email)).Scan(
		&acc.ID, &acc.Name, &acc.Email, &acc.PasswordHash, &role, &acc.Attributes,
		&acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc.Role = rbac.Role(role)
	return &acc, nil
}

// CreateAccount inserts the account and its registration audit row in one
// transaction.
func (r *PGRepository) CreateAccount(ctx context.Context, account Account) error {
	attrs := account.Attributes
	if len(attrs) == 0 {
		attrs = []byte("{}")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO accounts (id, name, email, password_hash, role, attributes, is_active)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)`,
			account.ID, account.Name, normalizeEmail(account.Email), account.PasswordHash, string(account.Role), attrs)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, 'account', $1, jsonb_build_object('role', $3::text), NOW())`,
			account.ID, shared.AuditRegister, string(account.Role))
		return err
	})
}

const updateProfileSQL = `UPDATE accounts SET name = $2, email = $3, attributes = $4, updated_at = NOW()
WHERE id = $1`

// UpdateProfile writes the editable fields of p back to its account. The role
// column is never written.
func (r *PGRepository) UpdateProfile(ctx context.Context, p profile.Profile) error {
	attrs := []byte("{}")
	if p.Attributes != nil {
		encoded, err := json.Marshal(p.Attributes)
		if err != nil {
			return fmt.Errorf("auth: encode attributes: %w", err)
		}
		attrs = encoded
	}
	tag, err := r.pool.Exec(ctx, updateProfileSQL, p.ID, p.Name, normalizeEmail(p.Email), attrs)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var _ Repository = (*PGRepository)(nil)
