package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository stores the Spotify accounts that have logged in.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Get returns the user with the given Spotify ID.
func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	rows, _ := r.pool.Query(ctx,
		`SELECT id, display_name, email, created_at, updated_at FROM users WHERE id = $1`, id)
	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// Upsert records a login. An empty email keeps the stored one.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	return upsertUser(ctx, r.pool, user)
}

func upsertUser(ctx context.Context, q rowQuerier, user *User) error {
	err := q.QueryRow(ctx, `
		INSERT INTO users (id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			updated_at = NOW()
		RETURNING email, created_at, updated_at
	`, user.ID, user.DisplayName, user.Email).Scan(&user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user %s: %w", user.ID, err)
	}
	return nil
}
