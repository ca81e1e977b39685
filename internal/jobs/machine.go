package jobs

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/ledger"
	"github.com/tradiehub/backend/internal/models"
)

// ErrInvalidTransition is returned when the requested action is not
// legal from the job's current status, or the actor lacks permission
// for it. The job is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrValidation is returned when the action payload is missing or
// malformed (empty reason, incomplete booking, bad quote numbers).
var ErrValidation = errors.New("validation failed")

// Payload carries the per-action input of a transition request. Only
// the field the action needs is consulted.
type Payload struct {
	Reason      string          `json:"reason,omitempty"`
	Quote       *QuoteInput     `json:"quote,omitempty"`
	Booking     *BookingInput   `json:"booking,omitempty"`
	Info        *InfoInput      `json:"info,omitempty"`
	AmountPence int64           `json:"amount_pence,omitempty"`
}

type QuoteInput struct {
	HourlyRatePence int64   `json:"hourly_rate_pence"`
	EstimatedHours  float64 `json:"estimated_hours"`
	Notes           string  `json:"notes,omitempty"`
}

type BookingInput struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
}

type InfoInput struct {
	Description string   `json:"description"`
	Photos      []string `json:"photos,omitempty"`
}

// Effects lists the side effects the caller must run for an applied
// transition. Money effects are mandatory and atomic with the status
// write; calendar and notification effects are best-effort.
type Effects struct {
	ChargeAndHold bool
	ReleaseEscrow bool
	MarkCalendar  bool
	NotifyKind    string
}

// either is the actor value for transitions both participants may take.
const either = "either"

type transitionKey struct {
	from   models.Status
	action models.Action
}

type transitionRule struct {
	actor string
	apply func(j *models.Job, actorUID uuid.UUID, p Payload, now time.Time) error
	fx    Effects
}

// cancellable statuses: no money has moved yet, so a plain cancel is
// legal. Once payment lands the only exit is a dispute.
var cancellable = []models.Status{
	models.StatusPending,
	models.StatusTradieAccepted,
	models.StatusAccepted,
	models.StatusInfoRequested,
	models.StatusInfoProvided,
	models.StatusQuoteProvided,
	models.StatusQuoteAccepted,
	models.StatusBookingRequested,
	models.StatusBookingConfirmed,
}

var disputable = []models.Status{
	models.StatusPaymentComplete,
	models.StatusInProgress,
	models.StatusCompleted,
}

var transitions = buildTransitions()

func buildTransitions() map[transitionKey]transitionRule {
	t := map[transitionKey]transitionRule{
		{models.StatusTradieAccepted, models.ActionApprove}: {
			actor: models.RoleClient,
			apply: func(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
				j.Status = models.StatusPending
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusTradieAccepted, models.ActionDecline}: {
			actor: models.RoleClient,
			apply: declineWithReason,
			fx:    Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusPending, models.ActionAccept}: {
			actor: models.RoleTradie,
			apply: func(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
				j.Status = models.StatusAccepted
				j.AcceptedAt = &now
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusPending, models.ActionDecline}: {
			actor: models.RoleTradie,
			apply: declineWithReason,
			fx:    Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusAccepted, models.ActionRequestInfo}: {
			actor: models.RoleTradie,
			apply: func(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
				j.Status = models.StatusInfoRequested
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusAccepted, models.ActionQuote}: {
			actor: models.RoleTradie,
			apply: applyQuote,
			fx:    Effects{NotifyKind: models.NotifyQuoteReceived},
		},
		{models.StatusInfoRequested, models.ActionSubmitInfo}: {
			actor: models.RoleClient,
			apply: func(j *models.Job, _ uuid.UUID, p Payload, now time.Time) error {
				if p.Info == nil || strings.TrimSpace(p.Info.Description) == "" {
					return fmt.Errorf("%w: info description is required", ErrValidation)
				}
				j.Status = models.StatusInfoProvided
				j.InfoDescription = p.Info.Description
				j.InfoPhotos = p.Info.Photos
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusInfoProvided, models.ActionDecline}: {
			actor: models.RoleTradie,
			apply: declineWithReason,
			fx:    Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusInfoProvided, models.ActionQuote}: {
			actor: models.RoleTradie,
			apply: applyQuote,
			fx:    Effects{NotifyKind: models.NotifyQuoteReceived},
		},
		{models.StatusQuoteProvided, models.ActionAcceptQuote}: {
			actor: models.RoleClient,
			apply: func(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
				j.Status = models.StatusQuoteAccepted
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusQuoteProvided, models.ActionDeclineQuote}: {
			actor: models.RoleClient,
			apply: func(j *models.Job, _ uuid.UUID, p Payload, now time.Time) error {
				j.Status = models.StatusQuoteDeclined
				j.DeclineReason = strings.TrimSpace(p.Reason)
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusQuoteAccepted, models.ActionBook}: {
			actor: models.RoleClient,
			apply: applyBooking,
			fx:    Effects{NotifyKind: models.NotifyStatusChanged},
		},
		{models.StatusBookingRequested, models.ActionConfirmBooking}: {
			actor: models.RoleTradie,
			apply: func(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
				j.Status = models.StatusBookingConfirmed
				j.ConfirmedAt = &now
				return nil
			},
			fx: Effects{MarkCalendar: true, NotifyKind: models.NotifyBookingConfirmed},
		},
		{models.StatusBookingConfirmed, models.ActionPay}: {
			actor: models.RoleClient,
			apply: applyPay,
			fx:    Effects{ChargeAndHold: true, NotifyKind: models.NotifyPaymentReceived},
		},
		{models.StatusInProgress, models.ActionComplete}: {
			actor: models.RoleClient,
			apply: applyComplete,
			fx:    Effects{ReleaseEscrow: true, NotifyKind: models.NotifyJobCompleted},
		},
	}

	for _, from := range cancellable {
		t[transitionKey{from, models.ActionCancel}] = transitionRule{
			actor: either,
			apply: func(j *models.Job, actorUID uuid.UUID, p Payload, now time.Time) error {
				reason := strings.TrimSpace(p.Reason)
				if reason == "" {
					return fmt.Errorf("%w: cancel reason is required", ErrValidation)
				}
				j.Status = models.StatusCancelled
				j.CancelReason = reason
				j.CancelledBy = &actorUID
				j.CancelledAt = &now
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyJobCancelled},
		}
	}
	for _, from := range disputable {
		t[transitionKey{from, models.ActionDispute}] = transitionRule{
			actor: either,
			apply: func(j *models.Job, actorUID uuid.UUID, p Payload, now time.Time) error {
				reason := strings.TrimSpace(p.Reason)
				if reason == "" {
					return fmt.Errorf("%w: dispute reason is required", ErrValidation)
				}
				j.Status = models.StatusDispute
				j.CancelReason = reason
				j.CancelledBy = &actorUID
				return nil
			},
			fx: Effects{NotifyKind: models.NotifyDisputeOpened},
		}
	}
	return t
}

func declineWithReason(j *models.Job, _ uuid.UUID, p Payload, _ time.Time) error {
	reason := strings.TrimSpace(p.Reason)
	if reason == "" {
		return fmt.Errorf("%w: decline reason is required", ErrValidation)
	}
	j.Status = models.StatusDeclined
	j.DeclineReason = reason
	return nil
}

func applyQuote(j *models.Job, _ uuid.UUID, p Payload, now time.Time) error {
	q := p.Quote
	if q == nil {
		return fmt.Errorf("%w: quote is required", ErrValidation)
	}
	if q.HourlyRatePence <= 0 || q.EstimatedHours <= 0 {
		return fmt.Errorf("%w: quote rate and hours must be positive", ErrValidation)
	}
	j.Status = models.StatusQuoteProvided
	j.Quote = &models.Quote{
		HourlyRatePence: q.HourlyRatePence,
		EstimatedHours:  q.EstimatedHours,
		TotalPence:      int64(math.Round(float64(q.HourlyRatePence) * q.EstimatedHours)),
		Notes:           q.Notes,
	}
	j.QuotedAt = &now
	return nil
}

func applyBooking(j *models.Job, _ uuid.UUID, p Payload, now time.Time) error {
	b := p.Booking
	if b == nil {
		return fmt.Errorf("%w: booking is required", ErrValidation)
	}
	for name, v := range map[string]string{
		"address": b.Address, "phone": b.Phone, "date": b.Date, "time_slot": b.TimeSlot,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: booking %s is required", ErrValidation, name)
		}
	}
	j.Status = models.StatusBookingRequested
	j.Booking = &models.Booking{Date: b.Date, TimeSlot: b.TimeSlot}
	j.ServiceLocation = &models.ServiceLocation{Address: b.Address, Phone: b.Phone, Email: b.Email}
	j.BookedAt = &now
	return nil
}

// applyPay collapses payment_complete -> in_progress into one atomic
// transition: the intermediate status is recorded only through the
// payment fields and paid_at. The two-step dance in older clients was
// UI sequencing, not a domain rule.
func applyPay(j *models.Job, _ uuid.UUID, p Payload, now time.Time) error {
	if j.Quote == nil {
		return fmt.Errorf("%w: job has no quote", ErrValidation)
	}
	if p.AmountPence != j.Quote.TotalPence {
		return fmt.Errorf("%w: payment amount must equal quote total", ErrValidation)
	}
	commission, tradieAmount := ledger.Split(p.AmountPence)
	j.Status = models.StatusInProgress
	j.PaymentAmountPence = &p.AmountPence
	j.CommissionPence = &commission
	j.TradieAmountPence = &tradieAmount
	j.PaidAt = &now
	return nil
}

func applyComplete(j *models.Job, _ uuid.UUID, _ Payload, now time.Time) error {
	if j.TradieAmountPence == nil {
		return fmt.Errorf("%w: job has no recorded payment", ErrValidation)
	}
	j.Status = models.StatusCompleted
	j.CompletedAt = &now
	j.AwaitingReview = true
	scrub(j)
	return nil
}

// scrub irreversibly clears the client's contact details and request
// photos once the work is done. The fields stay present but empty so
// readers can tell "cleared" from "never set".
func scrub(j *models.Job) {
	if j.ServiceLocation != nil {
		j.ServiceLocation.Address = ""
		j.ServiceLocation.Phone = ""
		j.ServiceLocation.Email = ""
	}
	j.InfoPhotos = nil
	j.InfoDescription = ""
}

// Apply validates and applies a single transition to a copy of the
// job. It returns the next job state plus the side effects the caller
// must run, or a typed error with the job untouched.
func Apply(job *models.Job, actorUID uuid.UUID, action models.Action, p Payload, now time.Time) (*models.Job, Effects, error) {
	role, ok := job.Participant(actorUID)
	if !ok {
		return nil, Effects{}, fmt.Errorf("%w: actor is not a participant of this job", ErrInvalidTransition)
	}
	if job.Terminal() {
		return nil, Effects{}, fmt.Errorf("%w: job is in terminal status %s", ErrInvalidTransition, job.Status)
	}
	rule, ok := transitions[transitionKey{job.Status, action}]
	if !ok {
		return nil, Effects{}, fmt.Errorf("%w: action %s is not legal from status %s", ErrInvalidTransition, action, job.Status)
	}
	if rule.actor != either && rule.actor != role {
		return nil, Effects{}, fmt.Errorf("%w: action %s requires the %s", ErrInvalidTransition, action, rule.actor)
	}

	next := *job
	if job.Quote != nil {
		q := *job.Quote
		next.Quote = &q
	}
	if job.Booking != nil {
		b := *job.Booking
		next.Booking = &b
	}
	if job.ServiceLocation != nil {
		l := *job.ServiceLocation
		next.ServiceLocation = &l
	}
	if err := rule.apply(&next, actorUID, p, now); err != nil {
		return nil, Effects{}, err
	}
	next.UpdatedAt = now
	return &next, rule.fx, nil
}

// Allowed reports whether the (from, action) pair exists in the
// transition table, ignoring payload and authorization.
func Allowed(from models.Status, action models.Action) bool {
	_, ok := transitions[transitionKey{from, action}]
	return ok
}
