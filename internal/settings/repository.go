package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-workshop/backend/internal/models"
)

// Repository stores settings documents as JSONB rows keyed by name.
// A document that was never saved reads as its zero value.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) get(ctx context.Context, key string, dst any) (time.Time, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `SELECT value, updated_at FROM settings WHERE key = $1`, key).Scan(&raw, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load %s settings: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return time.Time{}, fmt.Errorf("decode %s settings: %w", key, err)
	}
	return updatedAt, nil
}

func (r *Repository) put(ctx context.Context, key string, v any) (time.Time, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode %s settings: %w", key, err)
	}
	const q = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING updated_at`
	var updatedAt time.Time
	if err := r.pool.QueryRow(ctx, q, key, raw).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("save %s settings: %w", key, err)
	}
	return updatedAt, nil
}

// Workshop returns the workshop document.
func (r *Repository) Workshop(ctx context.Context) (models.WorkshopSettings, error) {
	var s models.WorkshopSettings
	at, err := r.get(ctx, models.SettingsKeyWorkshop, &s)
	s.UpdatedAt = at
	return s, err
}

// Email returns the email channel document.
func (r *Repository) Email(ctx context.Context) (models.EmailSettings, error) {
	var s models.EmailSettings
	at, err := r.get(ctx, models.SettingsKeyEmail, &s)
	s.UpdatedAt = at
	return s, err
}

// WhatsApp returns the direct-message channel document.
func (r *Repository) WhatsApp(ctx context.Context) (models.WhatsAppSettings, error) {
	var s models.WhatsAppSettings
	at, err := r.get(ctx, models.SettingsKeyWhatsApp, &s)
	s.UpdatedAt = at
	return s, err
}

// SaveWorkshop replaces the workshop document.
func (r *Repository) SaveWorkshop(ctx context.Context, s *models.WorkshopSettings) error {
	at, err := r.put(ctx, models.SettingsKeyWorkshop, s)
	s.UpdatedAt = at
	return err
}

// SaveEmail replaces the email channel document.
func (r *Repository) SaveEmail(ctx context.Context, s *models.EmailSettings) error {
	at, err := r.put(ctx, models.SettingsKeyEmail, s)
	s.UpdatedAt = at
	return err
}

// SaveWhatsApp replaces the direct-message channel document.
func (r *Repository) SaveWhatsApp(ctx context.Context, s *models.WhatsAppSettings) error {
	at, err := r.put(ctx, models.SettingsKeyWhatsApp, s)
	s.UpdatedAt = at
	return err
}
