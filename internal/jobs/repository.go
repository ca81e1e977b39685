package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradiehub/backend/internal/models"
)

// ErrNotFound is returned when the referenced job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrVersionConflict is returned when an optimistic write lost a race.
// The caller re-reads the job and re-validates before retrying.
var ErrVersionConflict = errors.New("job version conflict")

const jobColumns = `id, client_id, tradie_id, status, title, description, budget_pence,
	quote, booking, service_location, info_description, info_photos,
	payment_amount_pence, commission_pence, tradie_amount_pence,
	awaiting_review, client_reviewed, tradie_reviewed, archived, invoice_id,
	cancel_reason, cancelled_by, decline_reason,
	created_at, accepted_at, quoted_at, booked_at, confirmed_at, paid_at,
	completed_at, cancelled_at, archived_at, updated_at, version`

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.ClientID, &j.TradieID, &j.Status, &j.Title, &j.Description, &j.BudgetPence,
		&j.Quote, &j.Booking, &j.ServiceLocation, &j.InfoDescription, &j.InfoPhotos,
		&j.PaymentAmountPence, &j.CommissionPence, &j.TradieAmountPence,
		&j.AwaitingReview, &j.ClientReviewed, &j.TradieReviewed, &j.Archived, &j.InvoiceID,
		&j.CancelReason, &j.CancelledBy, &j.DeclineReason,
		&j.CreatedAt, &j.AcceptedAt, &j.QuotedAt, &j.BookedAt, &j.ConfirmedAt, &j.PaidAt,
		&j.CompletedAt, &j.CancelledAt, &j.ArchivedAt, &j.UpdatedAt, &j.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

// Create inserts a new job at version 1.
func (r *Repository) Create(ctx context.Context, job *models.Job) error {
	return r.createIn(ctx, r.pool, job)
}

// CreateTx inserts a new job inside the given transaction (used by the
// board when converting an advert into a job).
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, job *models.Job) error {
	return r.createIn(ctx, tx, job)
}

// pgExecutor is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) createIn(ctx context.Context, q pgExecutor, job *models.Job) error {
	job.Version = 1
	return q.QueryRow(ctx, `
		INSERT INTO jobs (id, client_id, tradie_id, status, title, description, budget_pence,
			quote, booking, service_location, info_description, info_photos, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
		RETURNING created_at, updated_at
	`, job.ID, job.ClientID, job.TradieID, job.Status, job.Title, job.Description, job.BudgetPence,
		job.Quote, job.Booking, job.ServiceLocation, job.InfoDescription, job.InfoPhotos,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *Repository) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
}

// Put writes the job back guarded by the version read at Get time.
// Zero rows affected means another writer won the race.
func (r *Repository) Put(ctx context.Context, job *models.Job, expectedVersion int64) error {
	return r.putIn(ctx, r.pool, job, expectedVersion)
}

// PutTx is Put inside a caller-owned transaction; the escrow
// coordinator uses it so balance movement and status write commit
// together.
func (r *Repository) PutTx(ctx context.Context, tx pgx.Tx, job *models.Job, expectedVersion int64) error {
	return r.putIn(ctx, tx, job, expectedVersion)
}

func (r *Repository) putIn(ctx context.Context, q pgExecutor, job *models.Job, expectedVersion int64) error {
	result, err := q.Exec(ctx, `
		UPDATE jobs SET
			tradie_id = $2, status = $3,
			quote = $4, booking = $5, service_location = $6,
			info_description = $7, info_photos = $8,
			payment_amount_pence = $9, commission_pence = $10, tradie_amount_pence = $11,
			awaiting_review = $12, client_reviewed = $13, tradie_reviewed = $14,
			archived = $15, invoice_id = $16,
			cancel_reason = $17, cancelled_by = $18, decline_reason = $19,
			accepted_at = $20, quoted_at = $21, booked_at = $22, confirmed_at = $23,
			paid_at = $24, completed_at = $25, cancelled_at = $26, archived_at = $27,
			updated_at = now(), version = version + 1
		WHERE id = $1 AND version = $28
	`, job.ID, job.TradieID, job.Status,
		job.Quote, job.Booking, job.ServiceLocation,
		job.InfoDescription, job.InfoPhotos,
		job.PaymentAmountPence, job.CommissionPence, job.TradieAmountPence,
		job.AwaitingReview, job.ClientReviewed, job.TradieReviewed,
		job.Archived, job.InvoiceID,
		job.CancelReason, job.CancelledBy, job.DeclineReason,
		job.AcceptedAt, job.QuotedAt, job.BookedAt, job.ConfirmedAt,
		job.PaidAt, job.CompletedAt, job.CancelledAt, job.ArchivedAt,
		expectedVersion)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ListByParticipant returns jobs where uid is the client or the tradie.
func (r *Repository) ListByParticipant(ctx context.Context, uid uuid.UUID) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE client_id = $1 OR tradie_id = $1
		ORDER BY created_at DESC
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}
