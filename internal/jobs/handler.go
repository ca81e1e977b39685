package jobs

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/ledger"
	"github.com/tradiehub/backend/internal/middleware"
	"github.com/tradiehub/backend/internal/models"
	"github.com/tradiehub/backend/internal/payments"
)

// Error kinds surfaced to clients so the UI can re-render consistently.
const (
	KindNotFound            = "not_found"
	KindInvalidTransition   = "invalid_transition"
	KindValidationFailed    = "validation_failed"
	KindConcurrencyConflict = "concurrency_conflict"
	KindIntegrityViolation  = "integrity_violation"
	KindUpstreamFailure     = "upstream_failure"
	KindInternal            = "internal"
)

type CreateJobRequest struct {
	TradieID    string `json:"tradie_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	BudgetPence int64  `json:"budget_pence"`
}

type ActionRequest struct {
	Action  models.Action `json:"action"`
	Payload Payload       `json:"payload"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type Handler struct {
	svc *Service
	log *slog.Logger
}

func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Create handles POST /api/v1/jobs (direct hire, clients only).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, KindValidationFailed, "unauthorized")
		return
	}
	if actor.Role != models.RoleClient {
		writeError(w, http.StatusForbidden, KindInvalidTransition, "only clients can open job requests")
		return
	}
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "invalid JSON")
		return
	}
	tradieID, err := uuid.Parse(req.TradieID)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "invalid tradie_id")
		return
	}
	job, err := h.svc.CreateDirectHire(r.Context(), actor.UID, tradieID, req.Title, req.Description, req.BudgetPence)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(job)
}

// List handles GET /api/v1/jobs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, KindValidationFailed, "unauthorized")
		return
	}
	list, err := h.svc.List(r.Context(), actor.UID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Get handles GET /api/v1/jobs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, KindValidationFailed, "unauthorized")
		return
	}
	jobID, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "invalid job id")
		return
	}
	job, err := h.svc.Get(r.Context(), jobID, actor.UID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}

// Action handles POST /api/v1/jobs/{id}/actions — the single transition
// endpoint. The response is either the new job state or a typed error
// alongside which the caller can refetch the unchanged job.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, KindValidationFailed, "unauthorized")
		return
	}
	jobID, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "invalid job id")
		return
	}
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "invalid JSON")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, KindValidationFailed, "action is required")
		return
	}
	job, err := h.svc.Do(r.Context(), jobID, actor.UID, req.Action, req.Payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(job)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, KindNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusConflict, KindInvalidTransition, err.Error())
	case errors.Is(err, ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, KindValidationFailed, err.Error())
	case errors.Is(err, ErrVersionConflict):
		writeError(w, http.StatusConflict, KindConcurrencyConflict, "job was modified concurrently, retry")
	case errors.Is(err, ledger.ErrIntegrity):
		h.log.Error("integrity violation surfaced", "integrity", true, "error", err)
		writeError(w, http.StatusInternalServerError, KindIntegrityViolation, "financial integrity violation, flagged for reconciliation")
	case errors.Is(err, payments.ErrGateway):
		writeError(w, http.StatusBadGateway, KindUpstreamFailure, err.Error())
	default:
		h.log.Error("job operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, Kind: kind})
}
