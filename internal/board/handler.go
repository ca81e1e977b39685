package board

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/middleware"
	"github.com/tradiehub/backend/internal/models"
)

type PostAdvertRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	BudgetPence int64  `json:"budget_pence"`
	Category    string `json:"category"`
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

// Post handles POST /api/v1/adverts (clients only).
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != models.RoleClient {
		writeError(w, http.StatusForbidden, "only clients can post adverts")
		return
	}
	var req PostAdvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	advert, err := h.svc.Post(r.Context(), actor.UID, req.Title, req.Description, req.Category, req.BudgetPence)
	if err != nil {
		if errors.Is(err, jobs.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error("post advert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(advert)
}

// List handles GET /api/v1/adverts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if middleware.ActorFromCtx(r.Context()) == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.svc.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.log.Error("list adverts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Claim handles POST /api/v1/adverts/{id}/claim (tradies only).
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != models.RoleTradie {
		writeError(w, http.StatusForbidden, "only tradies can claim adverts")
		return
	}
	advertID, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid advert id")
		return
	}
	job, err := h.svc.Claim(r.Context(), advertID, actor.UID)
	if err != nil {
		if errors.Is(err, ErrAdvertNotFound) {
			writeError(w, http.StatusNotFound, "advert not found")
			return
		}
		h.log.Error("claim advert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(job)
}

// writeError emits the error payload through the JSON encoder so the
// message is always escaped.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
