package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/tradiehub/backend/internal/models"
)

// DeliverArgs is the queue payload for one notification delivery.
type DeliverArgs struct {
	NotificationID uuid.UUID  `json:"notification_id"`
	RecipientID    uuid.UUID  `json:"recipient_id"`
	NotifyKind     string     `json:"kind"`
	JobID          *uuid.UUID `json:"job_id,omitempty"`
}

func (DeliverArgs) Kind() string { return "notification_deliver" }

// NotificationRepo is the persistence contract the worker needs.
type NotificationRepo interface {
	Create(ctx context.Context, n *models.Notification) error
}

// DeliverWorker persists the notification row off the request path.
// Push delivery to devices would hang off this same worker.
type DeliverWorker struct {
	river.WorkerDefaults[DeliverArgs]
	repo NotificationRepo
	log  *slog.Logger
}

func NewDeliverWorker(repo NotificationRepo, log *slog.Logger) *DeliverWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DeliverWorker{repo: repo, log: log}
}

func (w *DeliverWorker) Work(ctx context.Context, job *river.Job[DeliverArgs]) error {
	args := job.Args
	n := &models.Notification{
		ID:          args.NotificationID,
		RecipientID: args.RecipientID,
		Kind:        args.NotifyKind,
		JobID:       args.JobID,
	}
	if err := w.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	return nil
}
