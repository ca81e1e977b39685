package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/models"
)

type fakeStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job

	// putHook runs before each Put and may return an error to inject.
	putHook func(attempt int) error
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *fakeStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Version = 1
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) Get(_ context.Context, jobID uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *fakeStore) Put(_ context.Context, job *models.Job, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putHook != nil {
		if err := s.putHook(s.puts); err != nil {
			return err
		}
	}
	current, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	cp := *job
	cp.Version = expectedVersion + 1
	s.jobs[job.ID] = &cp
	return nil
}

func (s *fakeStore) ListByParticipant(_ context.Context, uid uuid.UUID) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, j := range s.jobs {
		if _, ok := j.Participant(uid); ok {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeEscrow tracks balances and writes the job through the store with
// the same version guard, standing in for the single-transaction path.
type fakeEscrow struct {
	store *fakeStore

	onHoldPence     int64
	availablePence  int64
	commissionPence int64

	reconcileHook func(job *models.Job) (*models.Job, error)
}

func (e *fakeEscrow) ApplyPayment(ctx context.Context, job *models.Job, expectedVersion int64) error {
	if job.TradieAmountPence == nil || job.CommissionPence == nil {
		return errors.New("escrow: job missing payment split")
	}
	if err := e.store.Put(ctx, job, expectedVersion); err != nil {
		return err
	}
	e.onHoldPence += *job.TradieAmountPence
	e.commissionPence += *job.CommissionPence
	return nil
}

func (e *fakeEscrow) ReleaseOnCompletion(ctx context.Context, job *models.Job, expectedVersion int64) error {
	if err := e.store.Put(ctx, job, expectedVersion); err != nil {
		return err
	}
	e.onHoldPence -= *job.TradieAmountPence
	e.availablePence += *job.TradieAmountPence
	return nil
}

func (e *fakeEscrow) Reconcile(_ context.Context, job *models.Job) (*models.Job, error) {
	if e.reconcileHook != nil {
		return e.reconcileHook(job)
	}
	return job, nil
}

type fakeGateway struct {
	err     error
	charges []int64
}

func (g *fakeGateway) Charge(_ context.Context, amountPence int64, _ string) error {
	if g.err != nil {
		return g.err
	}
	g.charges = append(g.charges, amountPence)
	return nil
}

type fakeIdentity struct {
	roles map[uuid.UUID]string
}

func (i *fakeIdentity) Resolve(_ context.Context, uid uuid.UUID) (string, string, error) {
	role, ok := i.roles[uid]
	if !ok {
		return "", "", ErrNotFound
	}
	return role, "Test User", nil
}

type sentNotification struct {
	Recipient uuid.UUID
	Kind      string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (n *fakeNotifier) Notify(_ context.Context, recipient uuid.UUID, kind string, _ uuid.UUID) {
	n.sent = append(n.sent, sentNotification{recipient, kind})
}

type fakeCalendar struct {
	err   error
	marks int
}

func (c *fakeCalendar) MarkSlotOccupied(_ context.Context, _ uuid.UUID, _, _ string, _ uuid.UUID) error {
	c.marks++
	return c.err
}

type serviceHarness struct {
	svc      *Service
	store    *fakeStore
	escrow   *fakeEscrow
	gateway  *fakeGateway
	notifier *fakeNotifier
	calendar *fakeCalendar
	client   uuid.UUID
	tradie   uuid.UUID
}

func newServiceHarness() *serviceHarness {
	h := &serviceHarness{
		store:    newFakeStore(),
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
		calendar: &fakeCalendar{},
		client:   uuid.New(),
		tradie:   uuid.New(),
	}
	h.escrow = &fakeEscrow{store: h.store}
	identity := &fakeIdentity{roles: map[uuid.UUID]string{
		h.client: models.RoleClient,
		h.tradie: models.RoleTradie,
	}}
	h.svc = NewService(h.store, h.escrow, h.gateway, identity, h.notifier, h.calendar, slog.Default())
	return h
}

// seedJob drives a fresh direct hire up to the given status through
// the real transition path.
func (h *serviceHarness) seedJob(t *testing.T, upTo models.Status) *models.Job {
	t.Helper()
	ctx := context.Background()
	job, err := h.svc.CreateDirectHire(ctx, h.client, h.tradie, "Fix leaking tap", "Kitchen tap drips constantly", 30000)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	steps := []struct {
		to      models.Status
		actor   uuid.UUID
		action  models.Action
		payload Payload
	}{
		{models.StatusAccepted, h.tradie, models.ActionAccept, Payload{}},
		{models.StatusQuoteProvided, h.tradie, models.ActionQuote, Payload{Quote: &QuoteInput{HourlyRatePence: 5000, EstimatedHours: 4}}},
		{models.StatusQuoteAccepted, h.client, models.ActionAcceptQuote, Payload{}},
		{models.StatusBookingRequested, h.client, models.ActionBook, Payload{Booking: &BookingInput{Date: "2026-03-20", TimeSlot: "morning", Address: "1 High St", Phone: "07700900000"}}},
		{models.StatusBookingConfirmed, h.tradie, models.ActionConfirmBooking, Payload{}},
		{models.StatusInProgress, h.client, models.ActionPay, Payload{AmountPence: 20000}},
		{models.StatusCompleted, h.client, models.ActionComplete, Payload{}},
	}
	if job.Status == upTo {
		return job
	}
	for _, s := range steps {
		job, err = h.svc.Do(ctx, job.ID, s.actor, s.action, s.payload)
		if err != nil {
			t.Fatalf("step to %s: %v", s.to, err)
		}
		if job.Status != s.to {
			t.Fatalf("step landed in %s, want %s", job.Status, s.to)
		}
		if job.Status == upTo {
			return job
		}
	}
	t.Fatalf("never reached %s", upTo)
	return nil
}

func TestLifecycleEndToEnd(t *testing.T) {
	h := newServiceHarness()
	ctx := context.Background()

	job := h.seedJob(t, models.StatusInProgress)

	if len(h.gateway.charges) != 1 || h.gateway.charges[0] != 20000 {
		t.Fatalf("gateway charges: %v, want one charge of 20000", h.gateway.charges)
	}
	if h.escrow.onHoldPence != 17000 || h.escrow.commissionPence != 3000 {
		t.Fatalf("after pay: on_hold=%d commission=%d, want 17000/3000", h.escrow.onHoldPence, h.escrow.commissionPence)
	}
	if h.escrow.availablePence != 0 {
		t.Fatalf("funds released before completion: %d", h.escrow.availablePence)
	}
	if h.calendar.marks != 1 {
		t.Fatalf("calendar marks: %d, want 1", h.calendar.marks)
	}

	job, err := h.svc.Do(ctx, job.ID, h.client, models.ActionComplete, Payload{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if h.escrow.onHoldPence != 0 || h.escrow.availablePence != 17000 {
		t.Fatalf("after complete: on_hold=%d available=%d, want 0/17000", h.escrow.onHoldPence, h.escrow.availablePence)
	}
	if !job.AwaitingReview {
		t.Fatal("completed job must await review")
	}
	if job.ServiceLocation == nil || job.ServiceLocation.Address != "" || job.ServiceLocation.Phone != "" {
		t.Fatalf("contact details not scrubbed: %+v", job.ServiceLocation)
	}

	stored, err := h.svc.Get(ctx, job.ID, h.tradie)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != models.StatusCompleted || stored.Version != job.Version {
		t.Fatalf("stored job: status=%s version=%d, want completed/%d", stored.Status, stored.Version, job.Version)
	}
}

func TestPayReplayRejected(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusInProgress)

	_, err := h.svc.Do(context.Background(), job.ID, h.client, models.ActionPay, Payload{AmountPence: 20000})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("replayed pay: got %v, want ErrInvalidTransition", err)
	}
	if len(h.gateway.charges) != 1 {
		t.Fatalf("replay reached the gateway: %d charges", len(h.gateway.charges))
	}
	if h.escrow.onHoldPence != 17000 {
		t.Fatalf("replay moved money: on_hold=%d", h.escrow.onHoldPence)
	}
}

func TestGatewayFailureLeavesBookingConfirmed(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusBookingConfirmed)

	h.gateway.err = errors.New("card declined")
	_, err := h.svc.Do(context.Background(), job.ID, h.client, models.ActionPay, Payload{AmountPence: 20000})
	if err == nil {
		t.Fatal("pay should fail when the gateway does")
	}

	stored, _ := h.store.Get(context.Background(), job.ID)
	if stored.Status != models.StatusBookingConfirmed {
		t.Fatalf("job moved to %s on gateway failure", stored.Status)
	}
	if stored.PaymentAmountPence != nil {
		t.Fatal("payment fields recorded despite gateway failure")
	}
	if h.escrow.onHoldPence != 0 {
		t.Fatalf("escrow moved despite gateway failure: %d", h.escrow.onHoldPence)
	}

	// Recovers when the gateway does.
	h.gateway.err = nil
	next, err := h.svc.Do(context.Background(), job.ID, h.client, models.ActionPay, Payload{AmountPence: 20000})
	if err != nil {
		t.Fatalf("retry pay: %v", err)
	}
	if next.Status != models.StatusInProgress {
		t.Fatalf("retry landed in %s", next.Status)
	}
}

func TestVersionConflictRetries(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusQuoteProvided)

	conflicts := 0
	h.store.putHook = func(int) error {
		if conflicts < 2 {
			conflicts++
			return ErrVersionConflict
		}
		return nil
	}
	next, err := h.svc.Do(context.Background(), job.ID, h.client, models.ActionAcceptQuote, Payload{})
	if err != nil {
		t.Fatalf("accept quote after conflicts: %v", err)
	}
	if next.Status != models.StatusQuoteAccepted {
		t.Fatalf("landed in %s", next.Status)
	}
	if conflicts != 2 {
		t.Fatalf("conflicts consumed: %d, want 2", conflicts)
	}
}

func TestVersionConflictExhausted(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusQuoteProvided)

	h.store.putHook = func(int) error { return ErrVersionConflict }
	_, err := h.svc.Do(context.Background(), job.ID, h.client, models.ActionAcceptQuote, Payload{})
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("exhausted retries: got %v, want ErrVersionConflict", err)
	}
}

func TestCalendarFailureDoesNotBlock(t *testing.T) {
	h := newServiceHarness()
	h.calendar.err = errors.New("calendar store down")
	job := h.seedJob(t, models.StatusBookingConfirmed)

	if job.Status != models.StatusBookingConfirmed {
		t.Fatalf("confirm booking failed on calendar error: %s", job.Status)
	}
	if h.calendar.marks != 1 {
		t.Fatalf("calendar attempts: %d", h.calendar.marks)
	}
}

func TestNotificationsReachCounterparty(t *testing.T) {
	h := newServiceHarness()
	h.seedJob(t, models.StatusAccepted)

	// CreateDirectHire notifies the tradie of the request, the tradie's
	// accept notifies the client.
	want := []sentNotification{
		{h.tradie, models.NotifyJobRequested},
		{h.client, models.NotifyStatusChanged},
	}
	if len(h.notifier.sent) != len(want) {
		t.Fatalf("notifications sent: %d, want %d", len(h.notifier.sent), len(want))
	}
	for i, n := range want {
		if h.notifier.sent[i] != n {
			t.Errorf("notification %d: got %+v, want %+v", i, h.notifier.sent[i], n)
		}
	}
}

func TestCreateDirectHireValidation(t *testing.T) {
	h := newServiceHarness()
	ctx := context.Background()

	if _, err := h.svc.CreateDirectHire(ctx, h.client, h.tradie, "  ", "desc", 1000); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title: got %v", err)
	}
	if _, err := h.svc.CreateDirectHire(ctx, h.client, h.tradie, "title", "desc", 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero budget: got %v", err)
	}
	// Hiring another client is rejected.
	if _, err := h.svc.CreateDirectHire(ctx, h.client, h.client, "title", "desc", 1000); !errors.Is(err, ErrValidation) {
		t.Errorf("client hire target: got %v", err)
	}
}

func TestGetHidesJobsFromStrangers(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusPending)

	if _, err := h.svc.Get(context.Background(), job.ID, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stranger get: got %v, want ErrNotFound", err)
	}
}

func TestGetRunsReconciliation(t *testing.T) {
	h := newServiceHarness()
	job := h.seedJob(t, models.StatusBookingConfirmed)

	// Simulate a committed payment whose status write was lost: the
	// coordinator rolls the job forward on read.
	h.escrow.reconcileHook = func(j *models.Job) (*models.Job, error) {
		if j.Status == models.StatusBookingConfirmed {
			cp := *j
			cp.Status = models.StatusInProgress
			cp.Version = j.Version + 1
			return &cp, nil
		}
		return j, nil
	}
	got, err := h.svc.Get(context.Background(), job.ID, h.client)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusInProgress {
		t.Fatalf("reconcile did not roll forward: %s", got.Status)
	}
}
