package models

import (
	"time"

	"github.com/google/uuid"
)

// Advert is a client-posted board job visible to tradies before any one
// tradie is attached. Claiming converts it into a Job in
// tradie_accepted and deletes the advert in the same transaction.
type Advert struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetPence int64     `json:"budget_pence"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
}
