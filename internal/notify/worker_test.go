package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/tradiehub/backend/internal/models"
)

// fakeNotificationRepo mirrors the real repository's conflict clause:
// an insert with a seen ID is a silent no-op, not an error.
type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[uuid.UUID]*models.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[n.ID]; ok {
		return nil
	}
	cp := *n
	r.rows[n.ID] = &cp
	return nil
}

func TestDeliverWorkerPersistsNotification(t *testing.T) {
	repo := newFakeNotificationRepo()
	w := NewDeliverWorker(repo, nil)
	jobID := uuid.New()
	args := DeliverArgs{
		NotificationID: uuid.New(),
		RecipientID:    uuid.New(),
		NotifyKind:     models.NotifyJobCompleted,
		JobID:          &jobID,
	}

	if err := w.Work(context.Background(), &river.Job[DeliverArgs]{Args: args}); err != nil {
		t.Fatalf("work: %v", err)
	}
	n := repo.rows[args.NotificationID]
	if n == nil {
		t.Fatal("notification row not written")
	}
	if n.RecipientID != args.RecipientID || n.Kind != args.NotifyKind || *n.JobID != jobID {
		t.Errorf("persisted fields: %+v", n)
	}
}

// A delivery job can be handed out again after a crash between the
// insert and the queue ack. The second run must succeed, not error on
// the already-written row.
func TestDeliverWorkerRedeliveryIsIdempotent(t *testing.T) {
	repo := newFakeNotificationRepo()
	w := NewDeliverWorker(repo, nil)
	args := DeliverArgs{
		NotificationID: uuid.New(),
		RecipientID:    uuid.New(),
		NotifyKind:     models.NotifyReviewReceived,
	}

	for i := 0; i < 2; i++ {
		if err := w.Work(context.Background(), &river.Job[DeliverArgs]{Args: args}); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}
	if len(repo.rows) != 1 {
		t.Fatalf("rows after redelivery: %d, want 1", len(repo.rows))
	}
}
