package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction type and status enums. A payment record moves from
// on_hold to completed in lockstep with the escrow release; a
// withdrawal starts pending until paid out externally.
const (
	TxTypePayment    = "payment"
	TxTypeWithdrawal = "withdrawal"

	TxStatusOnHold    = "on_hold"
	TxStatusCompleted = "completed"
	TxStatusPending   = "pending"
)

// TransactionRecord is an immutable ledger entry. Only Status mutates,
// and only on_hold -> completed for payment records.
type TransactionRecord struct {
	ID              uuid.UUID  `json:"id"`
	TradieID        uuid.UUID  `json:"tradie_id"`
	JobID           *uuid.UUID `json:"job_id,omitempty"`
	Type            string     `json:"type"`
	AmountPence     int64      `json:"amount_pence"`
	CommissionPence int64      `json:"commission_pence"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}
