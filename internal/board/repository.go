package board

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tradiehub/backend/internal/models"
)

// ErrAdvertNotFound is returned when the advert does not exist or was
// already claimed by another tradie.
var ErrAdvertNotFound = errors.New("advert not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *Repository) Create(ctx context.Context, a *models.Advert) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO adverts (id, client_id, title, description, budget_pence, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, a.ID, a.ClientID, a.Title, a.Description, a.BudgetPence, a.Category).Scan(&a.CreatedAt)
}

func (r *Repository) List(ctx context.Context, category string) ([]*models.Advert, error) {
	sql := `
		SELECT id, client_id, title, description, budget_pence, category, created_at
		FROM adverts ORDER BY created_at DESC`
	args := []any{}
	if category != "" {
		sql = `
		SELECT id, client_id, title, description, budget_pence, category, created_at
		FROM adverts WHERE category = $1 ORDER BY created_at DESC`
		args = append(args, category)
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Advert
	for rows.Next() {
		var a models.Advert
		if err := rows.Scan(&a.ID, &a.ClientID, &a.Title, &a.Description, &a.BudgetPence, &a.Category, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

// GetForUpdate locks the advert row so two tradies racing to claim it
// serialize; the loser finds it gone.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Advert, error) {
	var a models.Advert
	err := tx.QueryRow(ctx, `
		SELECT id, client_id, title, description, budget_pence, category, created_at
		FROM adverts WHERE id = $1 FOR UPDATE
	`, id).Scan(&a.ID, &a.ClientID, &a.Title, &a.Description, &a.BudgetPence, &a.Category, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdvertNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM adverts WHERE id = $1`, id)
	return err
}
