package broadcastlogs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-workshop/backend/internal/models"
)

// Repository handles broadcast_logs persistence. Entries are append-only.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a broadcast logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one run summary.
func (r *Repository) Append(ctx context.Context, e *models.BroadcastLog) error {
	const q = `INSERT INTO broadcast_logs (id, channel, type, sent_at, success_count, attempted, skipped, event_date, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))`
	_, err := r.pool.Exec(ctx, q, e.ID, e.Channel, e.Type, e.SentAt, e.SuccessCount, e.Attempted, e.Skipped, e.EventDate, e.LastError)
	return err
}

// List returns entries newest first, optionally for one channel.
func (r *Repository) List(ctx context.Context, channel string, limit int) ([]models.BroadcastLog, error) {
	const q = `SELECT id, channel, type, sent_at, success_count, attempted, skipped, COALESCE(event_date, ''), COALESCE(last_error, '')
		FROM broadcast_logs
		WHERE ($1 = '' OR channel = $1)
		ORDER BY sent_at DESC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, q, channel, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.BroadcastLog, 0)
	for rows.Next() {
		var e models.BroadcastLog
		if err := rows.Scan(&e.ID, &e.Channel, &e.Type, &e.SentAt, &e.SuccessCount, &e.Attempted, &e.Skipped, &e.EventDate, &e.LastError); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Latest returns the most recent entry for channel, or nil when there is none.
func (r *Repository) Latest(ctx context.Context, channel string) (*models.BroadcastLog, error) {
	list, err := r.List(ctx, channel, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}
