package calendar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/tradiehub/backend/internal/models"
)

// MarkArgs is the queue payload for occupying one calendar slot.
type MarkArgs struct {
	TradieID uuid.UUID `json:"tradie_id"`
	Date     string    `json:"date"`
	TimeSlot string    `json:"time_slot"`
	JobID    uuid.UUID `json:"job_id"`
}

func (MarkArgs) Kind() string { return "calendar_mark" }

// SlotRepo is the persistence contract the worker needs.
type SlotRepo interface {
	Mark(ctx context.Context, slot *models.CalendarSlot) error
}

type MarkWorker struct {
	river.WorkerDefaults[MarkArgs]
	repo SlotRepo
}

func NewMarkWorker(repo SlotRepo) *MarkWorker {
	return &MarkWorker{repo: repo}
}

func (w *MarkWorker) Work(ctx context.Context, job *river.Job[MarkArgs]) error {
	args := job.Args
	jobID := args.JobID
	slot := &models.CalendarSlot{
		TradieID: args.TradieID,
		Date:     args.Date,
		TimeSlot: args.TimeSlot,
		Reason:   models.SlotReasonJob,
		JobID:    &jobID,
	}
	if err := w.repo.Mark(ctx, slot); err != nil {
		return fmt.Errorf("mark calendar slot: %w", err)
	}
	return nil
}
