package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/model"
)

type TokenRepository struct {
	q database.Querier
}

func NewTokenRepository(q database.Querier) *TokenRepository {
	return &TokenRepository{q: q}
}

func (r *TokenRepository) Store(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		token, userID, time.Now().UTC(), expiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Consume deletes the token and returns its owner; a token can be used once.
func (r *TokenRepository) Consume(ctx context.Context, token string) (int64, error) {
	var userID int64
	var expiresAt time.Time
	err := r.q.QueryRow(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 RETURNING user_id, expires_at`, token).
		Scan(&userID, &expiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("consume refresh token: %w", err)
	}
	if !time.Now().Before(expiresAt) {
		return 0, model.ErrTokenExpired
	}
	return userID, nil
}

func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	return nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
