package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// InsertDeliverFunc enqueues a delivery job. Provided by main as a
// closure over river.Client.Insert.
type InsertDeliverFunc func(ctx context.Context, args DeliverArgs) error

// Sink is the fire-and-forget notification entry point used by the
// jobs service and the review finalizer. Enqueue failures are logged
// and swallowed; a missed notification must never abort a transition.
type Sink struct {
	insert InsertDeliverFunc
	log    *slog.Logger
}

func NewSink(insert InsertDeliverFunc, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{insert: insert, log: log}
}

func (s *Sink) Notify(ctx context.Context, recipient uuid.UUID, kind string, jobID uuid.UUID) {
	args := DeliverArgs{
		NotificationID: uuid.New(),
		RecipientID:    recipient,
		NotifyKind:     kind,
	}
	if jobID != uuid.Nil {
		id := jobID
		args.JobID = &id
	}
	if err := s.insert(ctx, args); err != nil {
		s.log.Warn("notification enqueue failed", "recipient", recipient, "kind", kind, "error", err)
	}
}
