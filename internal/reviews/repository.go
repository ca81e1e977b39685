package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradiehub/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTx inserts a review inside the caller's transaction, so the
// row commits together with the job's review flags. The (job_id,
// reviewer_uid) unique constraint is the backstop against double
// submission.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, rev *models.Review) error {
	return tx.QueryRow(ctx, `
		INSERT INTO reviews (id, job_id, reviewer_uid, reviewed_uid, reviewer_role, rating, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rev.ID, rev.JobID, rev.ReviewerUID, rev.ReviewedUID, rev.ReviewerRole, rev.Rating, rev.Comment).Scan(&rev.CreatedAt)
}

func (r *Repository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Review, error) {
	return r.list(ctx, `
		SELECT id, job_id, reviewer_uid, reviewed_uid, reviewer_role, rating, comment, created_at
		FROM reviews WHERE job_id = $1 ORDER BY created_at
	`, jobID)
}

// ListClientReviewsForTradie returns every client-authored review
// targeting the tradie, for aggregate rating recomputation.
func (r *Repository) ListClientReviewsForTradie(ctx context.Context, tradieID uuid.UUID) ([]*models.Review, error) {
	return r.list(ctx, `
		SELECT id, job_id, reviewer_uid, reviewed_uid, reviewer_role, rating, comment, created_at
		FROM reviews WHERE reviewed_uid = $1 AND reviewer_role = $2 ORDER BY created_at
	`, tradieID, models.RoleClient)
}

func (r *Repository) list(ctx context.Context, sql string, args ...any) ([]*models.Review, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Review
	for rows.Next() {
		var rev models.Review
		if err := rows.Scan(&rev.ID, &rev.JobID, &rev.ReviewerUID, &rev.ReviewedUID, &rev.ReviewerRole, &rev.Rating, &rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &rev)
	}
	return list, rows.Err()
}
