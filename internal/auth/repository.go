package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user and returns the created account.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName, role string) (*Account, error) {
	var id uuid.UUID
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, email, passwordHash, displayName, role)
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return &Account{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Role:        role,
	}, nil
}

// GetByEmail returns the account and password hash for login. Returns
// nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, string, error) {
	var a Account
	var passwordHash string
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, rating_mean, rating_count, password_hash
		FROM users WHERE email = $1
	`, email)
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.RatingMean, &a.RatingCount, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", nil
		}
		return nil, "", err
	}
	return &a, passwordHash, nil
}

// GetByID returns the account for identity resolution.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, role, rating_mean, rating_count
		FROM users WHERE id = $1
	`, id)
	if err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Role, &a.RatingMean, &a.RatingCount); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateTradieRating stores a recomputed aggregate rating on the
// tradie's profile.
func (r *Repository) UpdateTradieRating(ctx context.Context, tradieID uuid.UUID, mean float64, count int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET rating_mean = $2, rating_count = $3 WHERE id = $1
	`, tradieID, mean, count)
	return err
}
