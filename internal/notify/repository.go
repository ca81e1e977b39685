package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradiehub/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a notification keyed by its enqueue-time ID. A
// redelivered queue job carries the same ID, so the conflict clause
// makes redelivery a no-op instead of a permanent failure.
func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient_id, kind, job_id, payload, read)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.RecipientID, n.Kind, n.JobID, n.Payload)
	return err
}

func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*models.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_id, kind, job_id, payload, read, created_at
		FROM notifications WHERE recipient_id = $1 ORDER BY created_at DESC
	`, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.JobID, &n.Payload, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkRead flips a single notification's read flag. Keyed by
// (recipient, id) so one recipient cannot dismiss another's rows.
func (r *Repository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND id = $2
	`, recipientID, id)
	return err
}
