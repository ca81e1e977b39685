package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxReviewCommentLen caps the free-text comment on a review.
const MaxReviewCommentLen = 500

// Review is one side's rating of a completed job. At most two exist per
// job (one per participant) and a reviewer may submit at most once.
type Review struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	ReviewerUID  uuid.UUID `json:"reviewer_uid"`
	ReviewedUID  uuid.UUID `json:"reviewed_uid"`
	ReviewerRole string    `json:"reviewer_role"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
