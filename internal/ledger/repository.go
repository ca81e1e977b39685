package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradiehub/backend/internal/models"
)

// ErrInsufficientFunds is returned when a withdrawal exceeds the
// available balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrIntegrity is returned when a financial invariant would be broken:
// an on-hold balance about to go negative, or a payment record that
// should exist but does not. Never retried, never clamped; surfaced
// for manual reconciliation.
var ErrIntegrity = errors.New("ledger integrity violation")

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Get(ctx context.Context, tradieID uuid.UUID) (*models.FinancialAccount, error) {
	var a models.FinancialAccount
	err := r.pool.QueryRow(ctx, `
		SELECT tradie_id, on_hold_balance_pence, available_balance_pence, total_earnings_pence, total_commission_paid_pence, created_at, updated_at
		FROM financial_accounts WHERE tradie_id = $1
	`, tradieID).Scan(&a.TradieID, &a.OnHoldBalancePence, &a.AvailableBalancePence, &a.TotalEarningsPence, &a.TotalCommissionPaidPence, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Ensure creates the tradie's account row if it does not exist yet.
func (r *AccountRepo) Ensure(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO financial_accounts (tradie_id) VALUES ($1)
		ON CONFLICT (tradie_id) DO NOTHING
	`, tradieID)
	return err
}

// AddOnHold atomically credits a payment: the tradie's share goes on
// hold, earnings and commission-paid totals grow in the same statement.
func (r *AccountRepo) AddOnHold(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, tradieAmount, commission int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE financial_accounts
		SET on_hold_balance_pence = on_hold_balance_pence + $1,
		    total_earnings_pence = total_earnings_pence + $1,
		    total_commission_paid_pence = total_commission_paid_pence + $2,
		    updated_at = now()
		WHERE tradie_id = $3
	`, tradieAmount, commission, tradieID)
	return err
}

// ReleaseHold moves amount from on-hold to available in one guarded
// statement. Zero rows affected means the hold would go negative,
// which is a data-integrity fault, not a user error.
func (r *AccountRepo) ReleaseHold(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE financial_accounts
		SET on_hold_balance_pence = on_hold_balance_pence - $1,
		    available_balance_pence = available_balance_pence + $1,
		    updated_at = now()
		WHERE tradie_id = $2 AND on_hold_balance_pence >= $1
	`, amount, tradieID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrIntegrity
	}
	return nil
}

// DeductAvailable withdraws from the available balance, rejecting the
// whole statement if the balance is short.
func (r *AccountRepo) DeductAvailable(ctx context.Context, tx pgx.Tx, tradieID uuid.UUID, amount int64) error {
	result, err := tx.Exec(ctx, `
		UPDATE financial_accounts
		SET available_balance_pence = available_balance_pence - $1, updated_at = now()
		WHERE tradie_id = $2 AND available_balance_pence >= $1
	`, amount, tradieID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// CreateTx inserts a transaction record inside the given transaction.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx pgx.Tx, t *models.TransactionRecord) error {
	return tx.QueryRow(ctx, `
		INSERT INTO transaction_records (id, tradie_id, job_id, type, amount_pence, commission_pence, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, t.ID, t.TradieID, t.JobID, t.Type, t.AmountPence, t.CommissionPence, t.Status).Scan(&t.CreatedAt)
}

// MarkPaymentCompleted flips the job's on-hold payment record to
// completed. Zero rows means the audit counterpart of the escrow
// release is missing: an integrity fault.
func (r *TransactionRepo) MarkPaymentCompleted(ctx context.Context, tx pgx.Tx, jobID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE transaction_records SET status = $1
		WHERE job_id = $2 AND type = $3 AND status = $4
	`, models.TxStatusCompleted, jobID, models.TxTypePayment, models.TxStatusOnHold)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrIntegrity
	}
	return nil
}

// GetPaymentByJob returns the job's payment record, if any.
func (r *TransactionRepo) GetPaymentByJob(ctx context.Context, jobID uuid.UUID) (*models.TransactionRecord, error) {
	var t models.TransactionRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, tradie_id, job_id, type, amount_pence, commission_pence, status, created_at
		FROM transaction_records WHERE job_id = $1 AND type = $2
	`, jobID, models.TxTypePayment).Scan(&t.ID, &t.TradieID, &t.JobID, &t.Type, &t.AmountPence, &t.CommissionPence, &t.Status, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) ListByTradie(ctx context.Context, tradieID uuid.UUID) ([]*models.TransactionRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tradie_id, job_id, type, amount_pence, commission_pence, status, created_at
		FROM transaction_records WHERE tradie_id = $1 ORDER BY created_at DESC
	`, tradieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TransactionRecord
	for rows.Next() {
		var t models.TransactionRecord
		if err := rows.Scan(&t.ID, &t.TradieID, &t.JobID, &t.Type, &t.AmountPence, &t.CommissionPence, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &t)
	}
	return list, rows.Err()
}
