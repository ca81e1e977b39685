package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tradiehub/backend/internal/models"
)

// EscrowAccountRepo is the minimal account repository interface the
// coordinator needs.
type EscrowAccountRepo interface {
	Ensure(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID) error
	AddOnHold(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, tradieAmount, commission int64) error
	ReleaseHold(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, amount int64) error
	DeductAvailable(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, amount int64) error
}

// EscrowTransactionRepo is the minimal transaction-record interface.
type EscrowTransactionRepo interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.TransactionRecord) error
	MarkPaymentCompleted(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error
	GetPaymentByJob(ctx context.Context, jobID uuid.UUID) (*models.TransactionRecord, error)
}

// EscrowJobStore writes a job inside the coordinator's transaction so
// the balance movement and the status change commit together.
type EscrowJobStore interface {
	PutTx(ctx context.Context, tx pgx.Tx, job *models.Job, expectedVersion int64) error
}

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Escrow coordinates the money side of job transitions: a payment
// lands on hold atomically with the status write, and completion moves
// the same amount from hold to available while the audit record flips
// to completed in the same transaction.
type Escrow struct {
	Pool         TxBeginner
	Accounts     EscrowAccountRepo
	Transactions EscrowTransactionRepo
	Jobs         EscrowJobStore
	Logger       *slog.Logger
}

func NewEscrow(pool TxBeginner, accounts EscrowAccountRepo, transactions EscrowTransactionRepo, jobs EscrowJobStore, log *slog.Logger) *Escrow {
	if log == nil {
		log = slog.Default()
	}
	return &Escrow{Pool: pool, Accounts: accounts, Transactions: transactions, Jobs: jobs, Logger: log}
}

// ApplyPayment commits a charged payment: the tradie's share goes on
// hold, a payment record is written, and the job row advances — all in
// one transaction. On any failure the whole thing rolls back and the
// job stays in booking_confirmed.
func (e *Escrow) ApplyPayment(ctx context.Context, job *models.Job, expectedVersion int64) error {
	if job.TradieID == nil || job.PaymentAmountPence == nil || job.CommissionPence == nil || job.TradieAmountPence == nil {
		return fmt.Errorf("%w: job %s is missing payment fields", ErrIntegrity, job.ID)
	}
	if *job.CommissionPence+*job.TradieAmountPence != *job.PaymentAmountPence {
		return fmt.Errorf("%w: commission split does not reconstruct payment for job %s", ErrIntegrity, job.ID)
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tradieID := *job.TradieID
	if err := e.Accounts.Ensure(ctx, tx, tradieID); err != nil {
		return err
	}
	if err := e.Accounts.AddOnHold(ctx, tx, tradieID, *job.TradieAmountPence, *job.CommissionPence); err != nil {
		return err
	}
	if err := e.Transactions.CreateTx(ctx, tx, &models.TransactionRecord{
		ID:              uuid.New(),
		TradieID:        tradieID,
		JobID:           &job.ID,
		Type:            models.TxTypePayment,
		AmountPence:     *job.PaymentAmountPence,
		CommissionPence: *job.CommissionPence,
		Status:          models.TxStatusOnHold,
	}); err != nil {
		return err
	}
	if err := e.Jobs.PutTx(ctx, tx, job, expectedVersion); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReleaseOnCompletion moves the held amount to available and marks the
// payment record completed, atomically with the job's completion write.
func (e *Escrow) ReleaseOnCompletion(ctx context.Context, job *models.Job, expectedVersion int64) error {
	if job.TradieID == nil || job.TradieAmountPence == nil {
		return fmt.Errorf("%w: job %s has no recorded tradie amount", ErrIntegrity, job.ID)
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := e.Accounts.ReleaseHold(ctx, tx, *job.TradieID, *job.TradieAmountPence); err != nil {
		e.logIfIntegrity(err, job.ID, "release hold")
		return err
	}
	if err := e.Transactions.MarkPaymentCompleted(ctx, tx, job.ID); err != nil {
		e.logIfIntegrity(err, job.ID, "mark payment completed")
		return err
	}
	if err := e.Jobs.PutTx(ctx, tx, job, expectedVersion); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Withdraw deducts from the available balance and records a pending
// withdrawal. Rejected outright if the balance is short.
func (e *Escrow) Withdraw(ctx context.Context, tradieID uuid.UUID, amountPence int64) (*models.TransactionRecord, error) {
	if amountPence <= 0 {
		return nil, fmt.Errorf("withdrawal amount must be positive")
	}

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := e.Accounts.DeductAvailable(ctx, tx, tradieID, amountPence); err != nil {
		return nil, err
	}
	rec := &models.TransactionRecord{
		ID:          uuid.New(),
		TradieID:    tradieID,
		Type:        models.TxTypeWithdrawal,
		AmountPence: amountPence,
		Status:      models.TxStatusPending,
	}
	if err := e.Transactions.CreateTx(ctx, tx, rec); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// Reconcile repairs a job whose payment committed but whose status
// write was lost: an on-hold payment record cross-checked by job ID is
// authoritative evidence the money moved, so the job is rolled forward
// to in_progress with the recorded amounts. Returns the repaired job,
// or the input unchanged when there is nothing to repair.
func (e *Escrow) Reconcile(ctx context.Context, job *models.Job) (*models.Job, error) {
	if job.Status != models.StatusBookingConfirmed {
		return job, nil
	}
	rec, err := e.Transactions.GetPaymentByJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Status != models.TxStatusOnHold {
		return job, nil
	}

	e.Logger.Warn("reconciling job with orphaned payment", "job_id", job.ID, "amount_pence", rec.AmountPence)

	next := *job
	amount := rec.AmountPence
	commission := rec.CommissionPence
	tradieAmount := amount - commission
	paidAt := rec.CreatedAt
	next.Status = models.StatusInProgress
	next.PaymentAmountPence = &amount
	next.CommissionPence = &commission
	next.TradieAmountPence = &tradieAmount
	next.PaidAt = &paidAt
	next.UpdatedAt = time.Now()

	tx, err := e.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := e.Jobs.PutTx(ctx, tx, &next, job.Version); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	next.Version = job.Version + 1
	return &next, nil
}

func (e *Escrow) logIfIntegrity(err error, jobID uuid.UUID, op string) {
	if errors.Is(err, ErrIntegrity) {
		e.Logger.Error("financial invariant violated", "integrity", true, "job_id", jobID, "op", op, "error", err)
	}
}
