package calendar

import (
	"context"

	"github.com/google/uuid"
)

// InsertMarkFunc enqueues a slot-marking job. Provided by main as a
// closure over river.Client.Insert.
type InsertMarkFunc func(ctx context.Context, args MarkArgs) error

// Service satisfies the jobs package's Calendar contract. Marking is
// queued rather than done inline: it is best-effort and must not block
// a booking confirmation.
type Service struct {
	insert InsertMarkFunc
}

func NewService(insert InsertMarkFunc) *Service {
	return &Service{insert: insert}
}

func (s *Service) MarkSlotOccupied(ctx context.Context, tradieID uuid.UUID, date, timeSlot string, jobID uuid.UUID) error {
	return s.insert(ctx, MarkArgs{
		TradieID: tradieID,
		Date:     date,
		TimeSlot: timeSlot,
		JobID:    jobID,
	})
}
