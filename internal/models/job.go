package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the job lifecycle state. Transitions between statuses happen
// only through the jobs state machine; nothing else writes this field.
type Status string

const (
	StatusPending          Status = "pending"
	StatusTradieAccepted   Status = "tradie_accepted"
	StatusAccepted         Status = "accepted"
	StatusInfoRequested    Status = "info_requested"
	StatusInfoProvided     Status = "info_provided"
	StatusQuoteProvided    Status = "quote_provided"
	StatusQuoteAccepted    Status = "quote_accepted"
	StatusQuoteDeclined    Status = "quote_declined"
	StatusBookingRequested Status = "booking_requested"
	StatusBookingConfirmed Status = "booking_confirmed"
	StatusPaymentComplete  Status = "payment_complete"
	StatusInProgress       Status = "in_progress"
	StatusCompleted        Status = "completed"
	StatusDeclined         Status = "declined"
	StatusCancelled        Status = "cancelled"
	StatusDispute          Status = "dispute"
)

// Action names accepted by the transition endpoint.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionDecline        Action = "decline"
	ActionAccept         Action = "accept"
	ActionRequestInfo    Action = "request_info"
	ActionSubmitInfo     Action = "submit_info"
	ActionQuote          Action = "quote"
	ActionAcceptQuote    Action = "accept_quote"
	ActionDeclineQuote   Action = "decline_quote"
	ActionBook           Action = "book"
	ActionConfirmBooking Action = "confirm_booking"
	ActionPay            Action = "pay"
	ActionComplete       Action = "complete"
	ActionCancel         Action = "cancel"
	ActionDispute        Action = "dispute"
)

// Participant roles.
const (
	RoleClient = "client"
	RoleTradie = "tradie"
)

// Quote is set once by the tradie. TotalPence is derived at quote time
// and never recomputed after the client accepts.
type Quote struct {
	HourlyRatePence int64   `json:"hourly_rate_pence"`
	EstimatedHours  float64 `json:"estimated_hours"`
	TotalPence      int64   `json:"total_pence"`
	Notes           string  `json:"notes,omitempty"`
}

// Booking is set once by the client during scheduling.
type Booking struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
}

// ServiceLocation carries the client's contact details for the visit.
// All three fields are blanked irreversibly when the job completes.
type ServiceLocation struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

type Job struct {
	ID       uuid.UUID  `json:"id"`
	ClientID uuid.UUID  `json:"client_id"`
	TradieID *uuid.UUID `json:"tradie_id,omitempty"`

	Status      Status `json:"status"`
	Title       string `json:"title"`
	Description string `json:"description"`
	BudgetPence int64  `json:"budget_pence"`

	Quote           *Quote           `json:"quote,omitempty"`
	Booking         *Booking         `json:"booking,omitempty"`
	ServiceLocation *ServiceLocation `json:"service_location,omitempty"`
	InfoDescription string           `json:"info_description,omitempty"`
	InfoPhotos      []string         `json:"info_photos,omitempty"`

	// Set exactly once, at payment time.
	PaymentAmountPence *int64 `json:"payment_amount_pence,omitempty"`
	CommissionPence    *int64 `json:"commission_pence,omitempty"`
	TradieAmountPence  *int64 `json:"tradie_amount_pence,omitempty"`

	AwaitingReview bool       `json:"awaiting_review"`
	ClientReviewed bool       `json:"client_reviewed"`
	TradieReviewed bool       `json:"tradie_reviewed"`
	Archived       bool       `json:"archived"`
	InvoiceID      *uuid.UUID `json:"invoice_id,omitempty"`

	CancelReason  string     `json:"cancel_reason,omitempty"`
	CancelledBy   *uuid.UUID `json:"cancelled_by,omitempty"`
	DeclineReason string     `json:"decline_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	QuotedAt    *time.Time `json:"quoted_at,omitempty"`
	BookedAt    *time.Time `json:"booked_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Optimistic-concurrency token maintained by the job store.
	Version int64 `json:"-"`
}

// Terminal reports whether no further transitions are legal from the
// job's current state. An archived completed job is terminal; an
// unarchived one still accepts reviews and disputes.
func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusDeclined, StatusCancelled, StatusQuoteDeclined:
		return true
	case StatusCompleted:
		return j.Archived
	}
	return false
}

// Participant reports whether uid is one of the job's two parties and,
// if so, which role it holds on this job.
func (j *Job) Participant(uid uuid.UUID) (string, bool) {
	if uid == j.ClientID {
		return RoleClient, true
	}
	if j.TradieID != nil && uid == *j.TradieID {
		return RoleTradie, true
	}
	return "", false
}
