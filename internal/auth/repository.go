package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-workshop/backend/internal/models"
)

// ErrAdminNotFound is returned when no admin has the given email.
var ErrAdminNotFound = errors.New("admin not found")

// Repository handles admin account persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByEmail returns an admin by email (case-insensitive).
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	const q = `SELECT id, email, password_hash, full_name, role, created_at, updated_at
		FROM admins WHERE lower(email) = lower($1)`
	var a models.Admin
	err := r.pool.QueryRow(ctx, q, strings.TrimSpace(email)).
		Scan(&a.ID, &a.Email, &a.Password, &a.FullName, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateIfMissing inserts an admin unless one with the same email exists.
// It reports whether a row was created.
func (r *Repository) CreateIfMissing(ctx context.Context, email, passwordHash, fullName string) (bool, error) {
	const q = `INSERT INTO admins (email, password_hash, full_name, role)
		VALUES (lower($1), $2, $3, $4)
		ON CONFLICT (email) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, strings.TrimSpace(email), passwordHash, fullName, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
