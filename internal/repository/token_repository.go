package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists email verification tokens.  Only the SHA-256 hash of
// a token is stored ('token_hash' column).
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreVerification inserts a verification token hash row.
func (r *TokenRepo) StoreVerification(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO verification_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// ConsumeVerification marks an unused, unexpired token as used and flags
// its user as verified in one transaction.  It returns the user id, or
// ErrTokenInvalid when the token cannot be used.
func (r *TokenRepo) ConsumeVerification(ctx context.Context, tokenHash string) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id        uint64
		userID    uint64
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, used_at FROM verification_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE",
		tokenHash).Scan(&id, &userID, &expiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTokenInvalid
		}
		return 0, err
	}
	if usedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrTokenInvalid
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE verification_tokens SET used_at=UTC_TIMESTAMP() WHERE id=?", id); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET is_verified=TRUE WHERE id=?", userID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}
