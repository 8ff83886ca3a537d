package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo keeps refresh token hashes. The raw token never reaches the
// database.
type TokenRepo struct {
	DB  dbtx
	now func() time.Time
}

func NewTokenRepo(db dbtx) *TokenRepo {
	return &TokenRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns the owner of a live token. Unknown, revoked and
// expired tokens, and tokens of deactivated accounts, all yield
// sql.ErrNoRows.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
		active    bool
	)
	err := r.DB.QueryRowContext(ctx, `SELECT t.user_id, t.expires_at, t.revoked_at, u.is_active
		FROM refresh_tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = ? LIMIT 1`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt, &active)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid || !active || r.now().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// Rotate revokes oldHash and stores newHash for the same user in one
// transaction. A token that was already revoked cannot be rotated twice.
func (r *TokenRepo) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	return inTx(ctx, r.DB, func(q dbtx) error {
		res, err := q.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND user_id = ? AND revoked_at IS NULL",
			r.now(), oldHash, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		_, err = q.ExecContext(ctx,
			"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
			userID, newHash, exp)
		return err
	})
}

// RevokeByHash marks one token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL",
		r.now(), tokenHash)
	return err
}

// RevokeAllForUser revokes every live token of a user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL",
		r.now(), userID)
	return err
}
