package registrants

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-workshop/backend/internal/models"
)

// ErrNotFound is returned when no registrant has the given id.
var ErrNotFound = errors.New("registrant not found")

const selectColumns = `SELECT id, full_name, email, whatsapp_number, organization, created_at, updated_at FROM registrants`

// Repository handles registrant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a registrant; id and timestamps are assigned by the database.
func (r *Repository) Create(ctx context.Context, reg *models.Registrant) error {
	const q = `INSERT INTO registrants (full_name, email, whatsapp_number, organization)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, reg.FullName, reg.Email, reg.WhatsAppNumber, reg.Organization).
		Scan(&reg.ID, &reg.CreatedAt, &reg.UpdatedAt)
}

// ListAll returns every registrant, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Registrant, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at DESC`)
}

// Search returns registrants whose name, email, organization or number
// contains term (case-insensitive), newest first. A blank term lists all.
func (r *Repository) Search(ctx context.Context, term string) ([]models.Registrant, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return r.ListAll(ctx)
	}
	const where = ` WHERE full_name ILIKE $1 OR email ILIKE $1 OR organization ILIKE $1 OR whatsapp_number ILIKE $1
		ORDER BY created_at DESC`
	return r.query(ctx, selectColumns+where, "%"+escapeLike(term)+"%")
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]models.Registrant, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Registrant, 0)
	for rows.Next() {
		var reg models.Registrant
		if err := rows.Scan(&reg.ID, &reg.FullName, &reg.Email, &reg.WhatsAppNumber, &reg.Organization, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// GetByID returns a registrant by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registrant, error) {
	var reg models.Registrant
	err := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id).
		Scan(&reg.ID, &reg.FullName, &reg.Email, &reg.WhatsAppNumber, &reg.Organization, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Update applies the non-nil fields of u and returns the stored registrant.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, u models.RegistrantUpdate) (*models.Registrant, error) {
	const q = `UPDATE registrants SET
			full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			whatsapp_number = COALESCE($4, whatsapp_number),
			organization = COALESCE($5, organization),
			updated_at = NOW()
		WHERE id = $1
		RETURNING id, full_name, email, whatsapp_number, organization, created_at, updated_at`
	var reg models.Registrant
	err := r.pool.QueryRow(ctx, q, id, u.FullName, u.Email, u.WhatsAppNumber, u.Organization).
		Scan(&reg.ID, &reg.FullName, &reg.Email, &reg.WhatsAppNumber, &reg.Organization, &reg.CreatedAt, &reg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// Delete removes a registrant.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountReach returns the total number of registrants and how many of them
// can be reached on each channel.
func (r *Repository) CountReach(ctx context.Context) (total, withEmail, withWhatsApp int, err error) {
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE btrim(email) <> ''),
		COUNT(*) FILTER (WHERE btrim(whatsapp_number) <> '')
		FROM registrants`
	err = r.pool.QueryRow(ctx, q).Scan(&total, &withEmail, &withWhatsApp)
	return total, withEmail, withWhatsApp, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
