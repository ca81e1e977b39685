package models

import (
	"time"

	"github.com/google/uuid"
)

// FinancialAccount is a tradie's running money position. Balances are
// integer pence and must never go negative; all mutations go through
// the ledger repository's atomic delta queries.
type FinancialAccount struct {
	TradieID                 uuid.UUID `json:"tradie_id"`
	OnHoldBalancePence       int64     `json:"on_hold_balance_pence"`
	AvailableBalancePence    int64     `json:"available_balance_pence"`
	TotalEarningsPence       int64     `json:"total_earnings_pence"`
	TotalCommissionPaidPence int64     `json:"total_commission_paid_pence"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
