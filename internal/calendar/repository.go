package calendar

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

// Mark records a tradie's slot as occupied. Re-marking the same slot
// for the same job is a no-op so delivery retries stay idempotent.
func (r *Repository) Mark(ctx context.Context, slot *models.CalendarSlot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_slots (tradie_id, date, time_slot, reason, job_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tradie_id, date, time_slot) DO NOTHING
	`, slot.TradieID, slot.Date, slot.TimeSlot, slot.Reason, slot.JobID)
	return err
}

func (r *Repository) ListByTradie(ctx context.Context, tradieID uuid.UUID) ([]*models.CalendarSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tradie_id, date, time_slot, reason, job_id, created_at
		FROM calendar_slots WHERE tradie_id = $1 ORDER BY date, time_slot
	`, tradieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.CalendarSlot
	for rows.Next() {
		var s models.CalendarSlot
		if err := rows.Scan(&s.TradieID, &s.Date, &s.TimeSlot, &s.Reason, &s.JobID, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}
