package reviews

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/middleware"
)

type SubmitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type Handler struct {
	finalizer *Finalizer
	log       *slog.Logger
}

func NewHandler(finalizer *Finalizer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{finalizer: finalizer, log: log}
}

// Submit handles POST /api/v1/jobs/{id}/reviews.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	jobID, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rev, err := h.finalizer.SubmitReview(r.Context(), jobID, actor.UID, req.Rating, req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "already reviewed")
		case errors.Is(err, jobs.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "job is not awaiting review")
		case errors.Is(err, jobs.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, jobs.ErrVersionConflict):
			writeError(w, http.StatusConflict, "job was modified concurrently, retry")
		default:
			h.log.Error("submit review failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rev)
}

// writeError emits the error payload through the JSON encoder so the
// message is always escaped.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
