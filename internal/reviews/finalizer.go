package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/models"
)

// ErrAlreadyReviewed is returned when the reviewer's slot on this job
// is already used.
var ErrAlreadyReviewed = errors.New("reviewer has already reviewed this job")

// ReviewRepo is the minimal review persistence interface. Writes go
// through the caller's transaction so they commit with the job flags.
type ReviewRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, rev *models.Review) error
	ListClientReviewsForTradie(ctx context.Context, tradieID uuid.UUID) ([]*models.Review, error)
}

// JobStore reads and conditionally writes the job whose review flags
// are being flipped.
type JobStore interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	PutTx(ctx context.Context, tx pgx.Tx, job *models.Job, expectedVersion int64) error
}

// RatingStore persists a tradie's recomputed aggregate rating.
type RatingStore interface {
	UpdateTradieRating(ctx context.Context, tradieID uuid.UUID, mean float64, count int) error
}

// Notifier mirrors the jobs package contract: fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, recipient uuid.UUID, kind string, jobID uuid.UUID)
}

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Finalizer handles the two-sided review gate and the archival of a
// completed job once both sides have reviewed.
type Finalizer struct {
	pool     TxBeginner
	reviews  ReviewRepo
	store    JobStore
	ratings  RatingStore
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewFinalizer(pool TxBeginner, reviews ReviewRepo, store JobStore, ratings RatingStore, notifier Notifier, log *slog.Logger) *Finalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Finalizer{pool: pool, reviews: reviews, store: store, ratings: ratings, notifier: notifier, log: log, now: time.Now}
}

const maxSubmitAttempts = 3

// SubmitReview records one side's review. The review row and the flag
// flip commit in one transaction, so a lost version race rolls both
// back and the retry starts from a clean slate. The second review
// archives the job: archived flag, invoice ID, awaiting_review
// cleared — after which the job is an immutable audit record.
func (f *Finalizer) SubmitReview(ctx context.Context, jobID, reviewerUID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", jobs.ErrValidation)
	}
	if len(comment) > models.MaxReviewCommentLen {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", jobs.ErrValidation, models.MaxReviewCommentLen)
	}

	var lastErr error
	for attempt := 0; attempt < maxSubmitAttempts; attempt++ {
		job, err := f.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		role, ok := job.Participant(reviewerUID)
		if !ok {
			return nil, jobs.ErrNotFound
		}
		if job.Status != models.StatusCompleted || !job.AwaitingReview || job.Archived {
			return nil, fmt.Errorf("%w: job is not awaiting review", jobs.ErrInvalidTransition)
		}
		if reviewedAlready(job, role) {
			return nil, ErrAlreadyReviewed
		}

		reviewed := job.ClientID
		if role == models.RoleClient {
			reviewed = *job.TradieID
		}
		rev := &models.Review{
			ID:           uuid.New(),
			JobID:        jobID,
			ReviewerUID:  reviewerUID,
			ReviewedUID:  reviewed,
			ReviewerRole: role,
			Rating:       rating,
			Comment:      strings.TrimSpace(comment),
		}

		next := *job
		if role == models.RoleClient {
			next.ClientReviewed = true
		} else {
			next.TradieReviewed = true
		}
		if next.ClientReviewed && next.TradieReviewed {
			now := f.now()
			invoice := uuid.New()
			next.Archived = true
			next.AwaitingReview = false
			next.InvoiceID = &invoice
			next.ArchivedAt = &now
		}
		next.UpdatedAt = f.now()

		if err := f.commitReview(ctx, rev, &next, job.Version); err != nil {
			if errors.Is(err, jobs.ErrVersionConflict) {
				lastErr = err
				continue
			}
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, ErrAlreadyReviewed
			}
			return nil, err
		}

		if role == models.RoleClient {
			if err := f.recomputeTradieRating(ctx, reviewed); err != nil {
				f.log.Warn("tradie rating recompute failed", "tradie_id", reviewed, "error", err)
			}
		}
		f.notifier.Notify(ctx, reviewed, models.NotifyReviewReceived, jobID)
		return rev, nil
	}
	return nil, lastErr
}

// commitReview writes the review row and the version-guarded job row in
// one transaction. Any failure rolls both back: no partial review ever
// persists, and the unique (job_id, reviewer_uid) constraint only fires
// for a genuinely committed earlier submission.
func (f *Finalizer) commitReview(ctx context.Context, rev *models.Review, next *models.Job, expectedVersion int64) error {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := f.reviews.CreateTx(ctx, tx, rev); err != nil {
		return err
	}
	if err := f.store.PutTx(ctx, tx, next, expectedVersion); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func reviewedAlready(job *models.Job, role string) bool {
	if role == models.RoleClient {
		return job.ClientReviewed
	}
	return job.TradieReviewed
}

// recomputeTradieRating rereads the full client review set and stores
// the exact mean plus count. Volume per tradie is small enough that
// the full recompute beats incremental bookkeeping.
func (f *Finalizer) recomputeTradieRating(ctx context.Context, tradieID uuid.UUID) error {
	all, err := f.reviews.ListClientReviewsForTradie(ctx, tradieID)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return nil
	}
	var sum int
	for _, r := range all {
		sum += r.Rating
	}
	mean := float64(sum) / float64(len(all))
	return f.ratings.UpdateTradieRating(ctx, tradieID, mean, len(all))
}
