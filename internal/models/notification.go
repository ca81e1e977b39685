package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification kinds delivered to participants as transitions land.
const (
	NotifyJobRequested     = "job_requested"
	NotifyAdvertClaimed    = "advert_claimed"
	NotifyStatusChanged    = "status_changed"
	NotifyQuoteReceived    = "quote_received"
	NotifyBookingConfirmed = "booking_confirmed"
	NotifyPaymentReceived  = "payment_received"
	NotifyJobCompleted     = "job_completed"
	NotifyReviewReceived   = "review_received"
	NotifyJobCancelled     = "job_cancelled"
	NotifyDisputeOpened    = "dispute_opened"
)

// Notification is keyed (recipient, id) with a per-row read flag, so
// dismissing one never rewrites the recipient's whole list.
type Notification struct {
	ID          uuid.UUID       `json:"id"`
	RecipientID uuid.UUID       `json:"recipient_id"`
	Kind        string          `json:"kind"`
	JobID       *uuid.UUID      `json:"job_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Read        bool            `json:"read"`
	CreatedAt   time.Time       `json:"created_at"`
}
