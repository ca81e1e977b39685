package router

import (
	"net/http"

	"github.com/tradiehub/backend/internal/auth"
	"github.com/tradiehub/backend/internal/board"
	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/ledger"
	"github.com/tradiehub/backend/internal/middleware"
	"github.com/tradiehub/backend/internal/notify"
	"github.com/tradiehub/backend/internal/reviews"
)

// New returns an http.Handler serving the API under /api/v1. Every
// route except register/login sits behind bearer-token auth.
func New(
	authHandler *auth.Handler,
	jobsHandler *jobs.Handler,
	boardHandler *board.Handler,
	reviewsHandler *reviews.Handler,
	ledgerHandler *ledger.Handler,
	notifyHandler *notify.Handler,
	validator middleware.TokenValidator,
) http.Handler {
	mux := http.NewServeMux()
	protect := middleware.BearerAuth(validator)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/jobs", protect(http.HandlerFunc(jobsHandler.Create)))
	mux.Handle("GET /api/v1/jobs", protect(http.HandlerFunc(jobsHandler.List)))
	mux.Handle("GET /api/v1/jobs/{id}", protect(http.HandlerFunc(jobsHandler.Get)))
	mux.Handle("POST /api/v1/jobs/{id}/actions", protect(http.HandlerFunc(jobsHandler.Action)))
	mux.Handle("POST /api/v1/jobs/{id}/reviews", protect(http.HandlerFunc(reviewsHandler.Submit)))

	mux.Handle("POST /api/v1/adverts", protect(http.HandlerFunc(boardHandler.Post)))
	mux.Handle("GET /api/v1/adverts", protect(http.HandlerFunc(boardHandler.List)))
	mux.Handle("POST /api/v1/adverts/{id}/claim", protect(http.HandlerFunc(boardHandler.Claim)))

	mux.Handle("GET /api/v1/account/balance", protect(http.HandlerFunc(ledgerHandler.Balance)))
	mux.Handle("GET /api/v1/account/transactions", protect(http.HandlerFunc(ledgerHandler.Transactions)))
	mux.Handle("POST /api/v1/account/withdrawals", protect(http.HandlerFunc(ledgerHandler.Withdraw)))

	mux.Handle("GET /api/v1/notifications", protect(http.HandlerFunc(notifyHandler.List)))
	mux.Handle("POST /api/v1/notifications/{id}/read", protect(http.HandlerFunc(notifyHandler.MarkRead)))

	return mux
}
