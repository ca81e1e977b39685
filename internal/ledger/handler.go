package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/tradiehub/backend/internal/middleware"
	"github.com/tradiehub/backend/internal/models"
)

type WithdrawRequest struct {
	AmountPence int64 `json:"amount_pence"`
}

type Handler struct {
	accounts     *AccountRepo
	transactions *TransactionRepo
	escrow       *Escrow
	log          *slog.Logger
}

func NewHandler(accounts *AccountRepo, transactions *TransactionRepo, escrow *Escrow, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{accounts: accounts, transactions: transactions, escrow: escrow, log: log}
}

// Balance handles GET /api/v1/account/balance (tradies only; clients
// have no financial account).
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != models.RoleTradie {
		writeError(w, http.StatusForbidden, "no financial account for this role")
		return
	}
	acc, err := h.accounts.Get(r.Context(), actor.UID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No payments yet: report a zeroed account rather than 404.
			acc = &models.FinancialAccount{TradieID: actor.UID}
		} else {
			h.log.Error("get balance failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(acc)
}

// Transactions handles GET /api/v1/account/transactions.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.transactions.ListByTradie(r.Context(), actor.UID)
	if err != nil {
		h.log.Error("list transactions failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// Withdraw handles POST /api/v1/account/withdrawals.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromCtx(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != models.RoleTradie {
		writeError(w, http.StatusForbidden, "only tradies can withdraw")
		return
	}
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.AmountPence <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}
	rec, err := h.escrow.Withdraw(r.Context(), actor.UID, req.AmountPence)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			writeError(w, http.StatusUnprocessableEntity, "insufficient available balance")
			return
		}
		h.log.Error("withdrawal failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

// writeError emits the error payload through the JSON encoder so the
// message is always escaped.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
