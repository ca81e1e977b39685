package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/models"
)

// maxAttempts bounds the optimistic-concurrency retry loop. A losing
// writer re-reads and re-validates; it never blindly reapplies.
const maxAttempts = 3

// Store is the versioned job record store.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
	Put(ctx context.Context, job *models.Job, expectedVersion int64) error
	ListByParticipant(ctx context.Context, uid uuid.UUID) ([]*models.Job, error)
}

// EscrowCoordinator applies the money side of a transition atomically
// with the job write.
type EscrowCoordinator interface {
	ApplyPayment(ctx context.Context, job *models.Job, expectedVersion int64) error
	ReleaseOnCompletion(ctx context.Context, job *models.Job, expectedVersion int64) error
	Reconcile(ctx context.Context, job *models.Job) (*models.Job, error)
}

// PaymentGateway charges the client before any escrow movement. A
// gateway failure leaves the job untouched in booking_confirmed.
type PaymentGateway interface {
	Charge(ctx context.Context, amountPence int64, payerRef string) error
}

// Identity resolves a user ID to its marketplace role and display name.
type Identity interface {
	Resolve(ctx context.Context, uid uuid.UUID) (role, displayName string, err error)
}

// Notifier is fire-and-forget: delivery failures never abort a
// transition.
type Notifier interface {
	Notify(ctx context.Context, recipient uuid.UUID, kind string, jobID uuid.UUID)
}

// Calendar marks the tradie's slot occupied on booking confirmation;
// best-effort, logged on failure.
type Calendar interface {
	MarkSlotOccupied(ctx context.Context, tradieID uuid.UUID, date, timeSlot string, jobID uuid.UUID) error
}

type Service struct {
	store    Store
	escrow   EscrowCoordinator
	gateway  PaymentGateway
	identity Identity
	notifier Notifier
	calendar Calendar
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, escrow EscrowCoordinator, gateway PaymentGateway, identity Identity, notifier Notifier, calendar Calendar, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		escrow:   escrow,
		gateway:  gateway,
		identity: identity,
		notifier: notifier,
		calendar: calendar,
		log:      log,
		now:      time.Now,
	}
}

// CreateDirectHire opens a job request from a client straight to a
// chosen tradie, starting in pending.
func (s *Service) CreateDirectHire(ctx context.Context, clientID, tradieID uuid.UUID, title, description string, budgetPence int64) (*models.Job, error) {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrValidation)
	}
	if budgetPence <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", ErrValidation)
	}
	role, _, err := s.identity.Resolve(ctx, tradieID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleTradie {
		return nil, fmt.Errorf("%w: hire target is not a tradie", ErrValidation)
	}

	job := &models.Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		TradieID:    &tradieID,
		Status:      models.StatusPending,
		Title:       title,
		Description: description,
		BudgetPence: budgetPence,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, tradieID, models.NotifyJobRequested, job.ID)
	return job, nil
}

// Get returns the job if uid is a participant. A read may trigger
// escrow reconciliation when a committed payment's status write was
// lost.
func (s *Service) Get(ctx context.Context, jobID, uid uuid.UUID) (*models.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if _, ok := job.Participant(uid); !ok {
		return nil, ErrNotFound
	}
	return s.escrow.Reconcile(ctx, job)
}

func (s *Service) List(ctx context.Context, uid uuid.UUID) ([]*models.Job, error) {
	return s.store.ListByParticipant(ctx, uid)
}

// Do applies one transition: load, validate through the state machine,
// run mandatory money effects atomically with the write, retry on lost
// races, then fire the best-effort effects. A rejected transition
// never mutates the job.
func (s *Service) Do(ctx context.Context, jobID, actorID uuid.UUID, action models.Action, payload Payload) (*models.Job, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		job, err := s.store.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		job, err = s.escrow.Reconcile(ctx, job)
		if err != nil {
			return nil, err
		}

		next, fx, err := Apply(job, actorID, action, payload, s.now())
		if err != nil {
			return nil, err
		}

		switch {
		case fx.ChargeAndHold:
			if err := s.gateway.Charge(ctx, *next.PaymentAmountPence, job.ClientID.String()); err != nil {
				return nil, fmt.Errorf("payment gateway: %w", err)
			}
			err = s.escrow.ApplyPayment(ctx, next, job.Version)
		case fx.ReleaseEscrow:
			err = s.escrow.ReleaseOnCompletion(ctx, next, job.Version)
		default:
			err = s.store.Put(ctx, next, job.Version)
		}
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		next.Version = job.Version + 1
		s.runDeferredEffects(ctx, next, actorID, fx)
		return next, nil
	}
	return nil, lastErr
}

// runDeferredEffects handles the side effects that must not block the
// transition: calendar slot marking and counterparty notification.
func (s *Service) runDeferredEffects(ctx context.Context, job *models.Job, actorID uuid.UUID, fx Effects) {
	if fx.MarkCalendar && job.TradieID != nil && job.Booking != nil {
		if err := s.calendar.MarkSlotOccupied(ctx, *job.TradieID, job.Booking.Date, job.Booking.TimeSlot, job.ID); err != nil {
			s.log.Warn("calendar slot mark failed", "job_id", job.ID, "error", err)
		}
	}
	if fx.NotifyKind == "" {
		return
	}
	if recipient, ok := s.counterparty(job, actorID); ok {
		s.notifier.Notify(ctx, recipient, fx.NotifyKind, job.ID)
	}
}

func (s *Service) counterparty(job *models.Job, actorID uuid.UUID) (uuid.UUID, bool) {
	if actorID == job.ClientID {
		if job.TradieID == nil {
			return uuid.Nil, false
		}
		return *job.TradieID, true
	}
	return job.ClientID, true
}
