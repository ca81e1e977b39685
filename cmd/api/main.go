package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/tradiehub/backend/internal/auth"
	"github.com/tradiehub/backend/internal/board"
	"github.com/tradiehub/backend/internal/calendar"
	"github.com/tradiehub/backend/internal/config"
	"github.com/tradiehub/backend/internal/jobs"
	"github.com/tradiehub/backend/internal/ledger"
	"github.com/tradiehub/backend/internal/notify"
	"github.com/tradiehub/backend/internal/payments"
	"github.com/tradiehub/backend/internal/reviews"
	"github.com/tradiehub/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	jobsRepo := jobs.NewRepository(pool)
	accountRepo := ledger.NewAccountRepo(pool)
	txRepo := ledger.NewTransactionRepo(pool)
	reviewRepo := reviews.NewRepository(pool)
	notifyRepo := notify.NewRepository(pool)
	calendarRepo := calendar.NewRepository(pool)
	boardRepo := board.NewRepository(pool)
	authRepo := auth.NewRepository(pool)

	// Background workers: notification delivery and calendar marking
	// are best-effort side effects processed off the request path.
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewDeliverWorker(notifyRepo, logger))
	river.AddWorker(workers, calendar.NewMarkWorker(calendarRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	sink := notify.NewSink(func(ctx context.Context, args notify.DeliverArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	}, logger)
	calendarSvc := calendar.NewService(func(ctx context.Context, args calendar.MarkArgs) error {
		_, err := riverClient.Insert(ctx, args, nil)
		return err
	})

	// Core services
	escrow := ledger.NewEscrow(pool, accountRepo, txRepo, jobsRepo, logger)
	gateway := payments.NewGateway(cfg.PaymentGatewayURL)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	jobsSvc := jobs.NewService(jobsRepo, escrow, gateway, authSvc, sink, calendarSvc, logger)
	boardSvc := board.NewService(boardRepo, jobsRepo, sink)
	finalizer := reviews.NewFinalizer(pool, reviewRepo, jobsRepo, authRepo, sink, logger)

	apiRouter := router.New(
		auth.NewHandler(authSvc, logger),
		jobs.NewHandler(jobsSvc, logger),
		board.NewHandler(boardSvc, logger),
		reviews.NewHandler(finalizer, logger),
		ledger.NewHandler(accountRepo, txRepo, escrow, logger),
		notify.NewHandler(notifyRepo, logger),
		authSvc,
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
