package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository stores login sessions with their Spotify tokens.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Start records the user and inserts the session in one transaction.
func (r *SessionRepository) Start(ctx context.Context, user *User, s *Session) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := upsertUser(ctx, tx, user); err != nil {
			return err
		}
		s.UserID = user.ID
		s.UserName = user.DisplayName
		_, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, user_id, access_token, refresh_token, token_expiry, created_at, expires_at)
			VALUES (@id, @user_id, @access_token, @refresh_token, @token_expiry, @created_at, @expires_at)
		`, pgx.NamedArgs{
			"id":            s.ID,
			"user_id":       s.UserID,
			"access_token":  s.AccessToken,
			"refresh_token": s.RefreshToken,
			"token_expiry":  s.TokenExpiry,
			"created_at":    s.CreatedAt,
			"expires_at":    s.ExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		return nil
	})
}

// Get returns an unexpired session with its user's display name.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT s.id, s.user_id, u.display_name, s.access_token, s.refresh_token,
		       s.token_expiry, s.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > NOW()
	`, id)
	s, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[Session])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UpdateToken stores a refreshed Spotify token. An empty refresh token keeps
// the stored one, since Spotify does not always rotate it.
func (r *SessionRepository) UpdateToken(ctx context.Context, id, accessToken, refreshToken string, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET access_token = $2,
		    refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
		    token_expiry = $4
		WHERE id = $1
	`, id, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("updating session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes expired sessions and reports how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
