package models

import (
	"time"

	"github.com/google/uuid"
)

// Slot occupancy reasons.
const (
	SlotReasonJob      = "job"
	SlotReasonPersonal = "personal"
)

// CalendarSlot marks a tradie's (date, time_slot) as occupied.
type CalendarSlot struct {
	TradieID  uuid.UUID  `json:"tradie_id"`
	Date      string     `json:"date"`
	TimeSlot  string     `json:"time_slot"`
	Reason    string     `json:"reason"`
	JobID     *uuid.UUID `json:"job_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
