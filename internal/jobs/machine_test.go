package jobs

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/models"
)

var (
	testClient = uuid.New()
	testTradie = uuid.New()
	testNow    = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
)

// makeJob builds a job that is internally consistent for the given
// status: quotes exist from quote_provided onward, bookings from
// booking_requested onward, payment fields from in_progress onward.
func makeJob(status models.Status) *models.Job {
	tradie := testTradie
	j := &models.Job{
		ID:          uuid.New(),
		ClientID:    testClient,
		TradieID:    &tradie,
		Status:      status,
		Title:       "Fix leaking tap",
		Description: "Kitchen tap drips constantly",
		BudgetPence: 30000,
		CreatedAt:   testNow.Add(-24 * time.Hour),
		Version:     1,
	}

	withQuote := map[models.Status]bool{
		models.StatusQuoteProvided: true, models.StatusQuoteAccepted: true,
		models.StatusQuoteDeclined: true, models.StatusBookingRequested: true,
		models.StatusBookingConfirmed: true, models.StatusPaymentComplete: true,
		models.StatusInProgress: true, models.StatusCompleted: true,
	}
	if withQuote[status] {
		j.Quote = &models.Quote{HourlyRatePence: 5000, EstimatedHours: 4, TotalPence: 20000}
	}

	withBooking := map[models.Status]bool{
		models.StatusBookingRequested: true, models.StatusBookingConfirmed: true,
		models.StatusPaymentComplete: true, models.StatusInProgress: true,
		models.StatusCompleted: true,
	}
	if withBooking[status] {
		j.Booking = &models.Booking{Date: "2026-03-20", TimeSlot: "morning"}
		j.ServiceLocation = &models.ServiceLocation{Address: "1 High St", Phone: "07700900000", Email: "c@example.com"}
	}

	withPayment := map[models.Status]bool{
		models.StatusPaymentComplete: true, models.StatusInProgress: true,
		models.StatusCompleted: true,
	}
	if withPayment[status] {
		amount, commission, tradieAmount := int64(20000), int64(3000), int64(17000)
		j.PaymentAmountPence = &amount
		j.CommissionPence = &commission
		j.TradieAmountPence = &tradieAmount
	}
	if status == models.StatusCompleted {
		j.AwaitingReview = true
		j.ServiceLocation = &models.ServiceLocation{}
	}
	return j
}

// payloadFor returns a payload that passes validation for the action.
func payloadFor(action models.Action, j *models.Job) Payload {
	switch action {
	case models.ActionDecline, models.ActionCancel, models.ActionDispute:
		return Payload{Reason: "no longer suitable"}
	case models.ActionQuote:
		return Payload{Quote: &QuoteInput{HourlyRatePence: 5000, EstimatedHours: 4}}
	case models.ActionSubmitInfo:
		return Payload{Info: &InfoInput{Description: "under the sink", Photos: []string{"p1.jpg"}}}
	case models.ActionBook:
		return Payload{Booking: &BookingInput{Date: "2026-03-20", TimeSlot: "morning", Address: "1 High St", Phone: "07700900000"}}
	case models.ActionPay:
		if j.Quote != nil {
			return Payload{AmountPence: j.Quote.TotalPence}
		}
		return Payload{AmountPence: 20000}
	}
	return Payload{}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   models.Status
		actor  uuid.UUID
		action models.Action
		to     models.Status
	}{
		{models.StatusTradieAccepted, testClient, models.ActionApprove, models.StatusPending},
		{models.StatusTradieAccepted, testClient, models.ActionDecline, models.StatusDeclined},
		{models.StatusPending, testTradie, models.ActionAccept, models.StatusAccepted},
		{models.StatusPending, testTradie, models.ActionDecline, models.StatusDeclined},
		{models.StatusAccepted, testTradie, models.ActionRequestInfo, models.StatusInfoRequested},
		{models.StatusAccepted, testTradie, models.ActionQuote, models.StatusQuoteProvided},
		{models.StatusInfoRequested, testClient, models.ActionSubmitInfo, models.StatusInfoProvided},
		{models.StatusInfoProvided, testTradie, models.ActionDecline, models.StatusDeclined},
		{models.StatusInfoProvided, testTradie, models.ActionQuote, models.StatusQuoteProvided},
		{models.StatusQuoteProvided, testClient, models.ActionAcceptQuote, models.StatusQuoteAccepted},
		{models.StatusQuoteProvided, testClient, models.ActionDeclineQuote, models.StatusQuoteDeclined},
		{models.StatusQuoteAccepted, testClient, models.ActionBook, models.StatusBookingRequested},
		{models.StatusBookingRequested, testTradie, models.ActionConfirmBooking, models.StatusBookingConfirmed},
		{models.StatusBookingConfirmed, testClient, models.ActionPay, models.StatusInProgress},
		{models.StatusInProgress, testClient, models.ActionComplete, models.StatusCompleted},
		{models.StatusBookingConfirmed, testClient, models.ActionCancel, models.StatusCancelled},
		{models.StatusBookingConfirmed, testTradie, models.ActionCancel, models.StatusCancelled},
		{models.StatusInProgress, testTradie, models.ActionDispute, models.StatusDispute},
		{models.StatusCompleted, testClient, models.ActionDispute, models.StatusDispute},
	}
	for _, tc := range cases {
		job := makeJob(tc.from)
		next, _, err := Apply(job, tc.actor, tc.action, payloadFor(tc.action, job), testNow)
		if err != nil {
			t.Errorf("%s + %s: unexpected error: %v", tc.from, tc.action, err)
			continue
		}
		if next.Status != tc.to {
			t.Errorf("%s + %s: got status %s, want %s", tc.from, tc.action, next.Status, tc.to)
		}
		if job.Status != tc.from {
			t.Errorf("%s + %s: input job mutated to %s", tc.from, tc.action, job.Status)
		}
	}
}

func TestAuthorization(t *testing.T) {
	cases := []struct {
		from   models.Status
		actor  uuid.UUID
		action models.Action
	}{
		{models.StatusPending, testClient, models.ActionAccept},          // tradie-only
		{models.StatusTradieAccepted, testTradie, models.ActionApprove},  // client-only
		{models.StatusQuoteProvided, testTradie, models.ActionAcceptQuote},
		{models.StatusBookingConfirmed, testTradie, models.ActionPay},
		{models.StatusInProgress, testTradie, models.ActionComplete},
	}
	for _, tc := range cases {
		job := makeJob(tc.from)
		_, _, err := Apply(job, tc.actor, tc.action, payloadFor(tc.action, job), testNow)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s + %s by wrong actor: got %v, want ErrInvalidTransition", tc.from, tc.action, err)
		}
	}

	// A stranger is never a participant.
	job := makeJob(models.StatusPending)
	_, _, err := Apply(job, uuid.New(), models.ActionAccept, Payload{}, testNow)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("stranger action: got %v, want ErrInvalidTransition", err)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, status := range []models.Status{models.StatusDeclined, models.StatusCancelled, models.StatusQuoteDeclined} {
		job := makeJob(status)
		for _, action := range allActions() {
			_, _, err := Apply(job, testClient, action, payloadFor(action, job), testNow)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("terminal %s + %s: got %v, want ErrInvalidTransition", status, action, err)
			}
		}
	}

	archived := makeJob(models.StatusCompleted)
	archived.Archived = true
	archived.AwaitingReview = false
	_, _, err := Apply(archived, testClient, models.ActionDispute, Payload{Reason: "too late"}, testNow)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("archived job dispute: got %v, want ErrInvalidTransition", err)
	}
}

func TestCancelVsDispute(t *testing.T) {
	for _, status := range cancellable {
		job := makeJob(status)
		if _, _, err := Apply(job, testClient, models.ActionCancel, Payload{Reason: "changed my mind"}, testNow); err != nil {
			t.Errorf("cancel from %s: %v", status, err)
		}
		if _, _, err := Apply(job, testClient, models.ActionDispute, Payload{Reason: "x"}, testNow); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("dispute from pre-payment %s: got %v, want ErrInvalidTransition", status, err)
		}
	}
	for _, status := range disputable {
		job := makeJob(status)
		if _, _, err := Apply(job, testTradie, models.ActionDispute, Payload{Reason: "client unresponsive"}, testNow); err != nil {
			t.Errorf("dispute from %s: %v", status, err)
		}
		if _, _, err := Apply(job, testTradie, models.ActionCancel, Payload{Reason: "x"}, testNow); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("cancel from post-payment %s: got %v, want ErrInvalidTransition", status, err)
		}
	}
}

func TestReasonRequired(t *testing.T) {
	for _, reason := range []string{"", "   ", "\t\n"} {
		job := makeJob(models.StatusPending)
		if _, _, err := Apply(job, testTradie, models.ActionDecline, Payload{Reason: reason}, testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("decline with reason %q: got %v, want ErrValidation", reason, err)
		}
		job = makeJob(models.StatusAccepted)
		if _, _, err := Apply(job, testClient, models.ActionCancel, Payload{Reason: reason}, testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("cancel with reason %q: got %v, want ErrValidation", reason, err)
		}
		job = makeJob(models.StatusInProgress)
		if _, _, err := Apply(job, testClient, models.ActionDispute, Payload{Reason: reason}, testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("dispute with reason %q: got %v, want ErrValidation", reason, err)
		}
	}
}

func TestQuoteDerivation(t *testing.T) {
	job := makeJob(models.StatusAccepted)
	next, _, err := Apply(job, testTradie, models.ActionQuote,
		Payload{Quote: &QuoteInput{HourlyRatePence: 5000, EstimatedHours: 4}}, testNow)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if next.Quote.TotalPence != 20000 {
		t.Errorf("quote total: got %d, want 20000", next.Quote.TotalPence)
	}
	if next.QuotedAt == nil {
		t.Error("quoted_at should be stamped")
	}

	// Fractional hours round to the nearest penny.
	next, _, err = Apply(makeJob(models.StatusAccepted), testTradie, models.ActionQuote,
		Payload{Quote: &QuoteInput{HourlyRatePence: 3333, EstimatedHours: 1.5}}, testNow)
	if err != nil {
		t.Fatalf("fractional quote: %v", err)
	}
	if next.Quote.TotalPence != 5000 {
		t.Errorf("fractional quote total: got %d, want 5000", next.Quote.TotalPence)
	}

	for _, bad := range []*QuoteInput{
		nil,
		{HourlyRatePence: 0, EstimatedHours: 4},
		{HourlyRatePence: 5000, EstimatedHours: 0},
		{HourlyRatePence: -1, EstimatedHours: 4},
	} {
		if _, _, err := Apply(makeJob(models.StatusAccepted), testTradie, models.ActionQuote, Payload{Quote: bad}, testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("bad quote %+v: got %v, want ErrValidation", bad, err)
		}
	}
}

func TestBookingValidation(t *testing.T) {
	full := BookingInput{Date: "2026-03-20", TimeSlot: "morning", Address: "1 High St", Phone: "07700900000"}
	fields := []func(*BookingInput){
		func(b *BookingInput) { b.Date = "" },
		func(b *BookingInput) { b.TimeSlot = "  " },
		func(b *BookingInput) { b.Address = "" },
		func(b *BookingInput) { b.Phone = "\t" },
	}
	for i, blank := range fields {
		b := full
		blank(&b)
		if _, _, err := Apply(makeJob(models.StatusQuoteAccepted), testClient, models.ActionBook, Payload{Booking: &b}, testNow); !errors.Is(err, ErrValidation) {
			t.Errorf("booking with blank field %d: got %v, want ErrValidation", i, err)
		}
	}

	next, _, err := Apply(makeJob(models.StatusQuoteAccepted), testClient, models.ActionBook, Payload{Booking: &full}, testNow)
	if err != nil {
		t.Fatalf("valid booking: %v", err)
	}
	if next.ServiceLocation == nil || next.ServiceLocation.Address != "1 High St" {
		t.Error("service location should carry the booking address")
	}
}

func TestPayTransition(t *testing.T) {
	job := makeJob(models.StatusBookingConfirmed)
	next, fx, err := Apply(job, testClient, models.ActionPay, Payload{AmountPence: 20000}, testNow)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if next.Status != models.StatusInProgress {
		t.Errorf("pay should land in in_progress, got %s", next.Status)
	}
	if !fx.ChargeAndHold {
		t.Error("pay must carry the charge-and-hold effect")
	}
	if *next.PaymentAmountPence != 20000 || *next.CommissionPence != 3000 || *next.TradieAmountPence != 17000 {
		t.Errorf("payment split: got %d/%d/%d, want 20000/3000/17000",
			*next.PaymentAmountPence, *next.CommissionPence, *next.TradieAmountPence)
	}
	if *next.CommissionPence+*next.TradieAmountPence != *next.PaymentAmountPence {
		t.Error("commission + tradie amount must equal payment amount")
	}

	if _, _, err := Apply(makeJob(models.StatusBookingConfirmed), testClient, models.ActionPay, Payload{AmountPence: 19999}, testNow); !errors.Is(err, ErrValidation) {
		t.Errorf("pay with wrong amount: got %v, want ErrValidation", err)
	}
}

func TestScrubOnComplete(t *testing.T) {
	job := makeJob(models.StatusInProgress)
	job.ServiceLocation = &models.ServiceLocation{Address: "1 High St", Phone: "07700900000", Email: "c@example.com"}
	job.InfoDescription = "gate code 1234"
	job.InfoPhotos = []string{"a.jpg", "b.jpg"}

	next, fx, err := Apply(job, testClient, models.ActionComplete, Payload{}, testNow)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !fx.ReleaseEscrow {
		t.Error("complete must carry the release-escrow effect")
	}
	loc := next.ServiceLocation
	if loc == nil || loc.Address != "" || loc.Phone != "" || loc.Email != "" {
		t.Errorf("service location not scrubbed: %+v", loc)
	}
	if next.InfoDescription != "" || next.InfoPhotos != nil {
		t.Error("info description and photos must be scrubbed")
	}
	if !next.AwaitingReview {
		t.Error("completed job must be awaiting review")
	}
	// Original untouched.
	if job.ServiceLocation.Address != "1 High St" {
		t.Error("input job must not be mutated")
	}
}

func allStatuses() []models.Status {
	return []models.Status{
		models.StatusPending, models.StatusTradieAccepted, models.StatusAccepted,
		models.StatusInfoRequested, models.StatusInfoProvided, models.StatusQuoteProvided,
		models.StatusQuoteAccepted, models.StatusQuoteDeclined, models.StatusBookingRequested,
		models.StatusBookingConfirmed, models.StatusPaymentComplete, models.StatusInProgress,
		models.StatusCompleted, models.StatusDeclined, models.StatusCancelled, models.StatusDispute,
	}
}

func allActions() []models.Action {
	return []models.Action{
		models.ActionApprove, models.ActionDecline, models.ActionAccept,
		models.ActionRequestInfo, models.ActionSubmitInfo, models.ActionQuote,
		models.ActionAcceptQuote, models.ActionDeclineQuote, models.ActionBook,
		models.ActionConfirmBooking, models.ActionPay, models.ActionComplete,
		models.ActionCancel, models.ActionDispute,
	}
}

// TestRandomSequences fires random valid-payload actions by random
// participants at jobs in random states and asserts every applied
// transition is an edge of the table and every rejection is typed
// invalid-transition.
func TestRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	statuses := allStatuses()
	actions := allActions()
	actors := []uuid.UUID{testClient, testTradie}

	for i := 0; i < 2000; i++ {
		from := statuses[rng.Intn(len(statuses))]
		action := actions[rng.Intn(len(actions))]
		actor := actors[rng.Intn(len(actors))]
		job := makeJob(from)

		next, _, err := Apply(job, actor, action, payloadFor(action, job), testNow)
		if err != nil {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s + %s: rejection must be ErrInvalidTransition, got %v", from, action, err)
			}
			continue
		}
		if !Allowed(from, action) {
			t.Fatalf("%s + %s applied but is not a table edge", from, action)
		}
		if job.Status != from {
			t.Fatalf("%s + %s mutated the input job", from, action)
		}
		if next.Status == from {
			// Every edge in this machine changes status.
			t.Fatalf("%s + %s: status did not change", from, action)
		}
	}
}

func TestDeclineRecordsReason(t *testing.T) {
	job := makeJob(models.StatusPending)
	next, _, err := Apply(job, testTradie, models.ActionDecline, Payload{Reason: "  fully booked this month  "}, testNow)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if next.DeclineReason != "fully booked this month" {
		t.Errorf("decline reason: got %q, want trimmed text", next.DeclineReason)
	}
	if !strings.Contains(string(next.Status), "declined") {
		t.Errorf("status: got %s", next.Status)
	}
}
