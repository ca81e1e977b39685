package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/models"
)

// AdvertRepo is the advert persistence interface for the service.
type AdvertRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, a *models.Advert) error
	List(ctx context.Context, category string) ([]*models.Advert, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Advert, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// JobCreator inserts the job created from a claimed advert inside the
// claim transaction.
type JobCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, job *models.Job) error
}

// Notifier mirrors the jobs package contract: fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, recipient uuid.UUID, kind string, jobID uuid.UUID)
}

type Service struct {
	repo     AdvertRepo
	jobStore JobCreator
	notifier Notifier
}

func NewService(repo AdvertRepo, jobStore JobCreator, notifier Notifier) *Service {
	return &Service{repo: repo, jobStore: jobStore, notifier: notifier}
}

// Post publishes a client's advert to the board.
func (s *Service) Post(ctx context.Context, clientID uuid.UUID, title, description, category string, budgetPence int64) (*models.Advert, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", jobs.ErrValidation)
	}
	if budgetPence <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", jobs.ErrValidation)
	}
	a := &models.Advert{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		BudgetPence: budgetPence,
		Category:    category,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, category string) ([]*models.Advert, error) {
	return s.repo.List(ctx, category)
}

// Claim converts a board advert into a job in one transaction: the job
// starts in tradie_accepted (the client still has to approve the
// tradie), and the advert disappears from the board.
func (s *Service) Claim(ctx context.Context, advertID, tradieID uuid.UUID) (*models.Job, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	advert, err := s.repo.GetForUpdate(ctx, tx, advertID)
	if err != nil {
		return nil, err
	}
	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    advert.ClientID,
		TradieID:    &tradieID,
		Status:      models.StatusTradieAccepted,
		Title:       advert.Title,
		Description: advert.Description,
		BudgetPence: advert.BudgetPence,
	}
	if err := s.jobStore.CreateTx(ctx, tx, job); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteTx(ctx, tx, advertID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, advert.ClientID, models.NotifyAdvertClaimed, job.ID)
	return job, nil
}
