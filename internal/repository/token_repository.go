package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TokenRepo persists refresh tokens (single 'token_hash' column, device
// scoped). The invariant it maintains: at most one non-revoked,
// non-expired row per (user_id, device_id) pair. Expired rows are left
// in place and filtered at read time.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Put stores a new refresh token hash for a (user, device) pair,
// rotating out any live row for the same pair. Revoke-then-insert runs
// in one transaction so a caller disconnecting mid-request can never
// leave two valid rows for one device.
func (r *TokenRepo) Put(ctx context.Context, userID uuid.UUID, deviceID, tokenHash string, expiresAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND device_id=? AND revoked_at IS NULL",
		userID.String(), deviceID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, device_id, token_hash, issued_at, expires_at) VALUES (?,?,?,UTC_TIMESTAMP(),?)",
		userID.String(), deviceID, tokenHash, expiresAt.UTC()); err != nil {
		return err
	}
	return nil
}

// Consume invalidates a live token matching both hash and device and
// returns the owning user id. The conditional UPDATE is the atomic unit:
// of two concurrent consumers of the same token exactly one sees an
// affected row; the other gets ErrInvalidRefresh. Unknown hash, device
// mismatch, expiry and prior revocation all fail identically.
func (r *TokenRepo) Consume(ctx context.Context, tokenHash, deviceID string) (uuid.UUID, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND device_id=? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()",
		tokenHash, deviceID)
	if err != nil {
		return uuid.Nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, err
	}
	if n == 0 {
		return uuid.Nil, ErrInvalidRefresh
	}

	var idStr string
	err = r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&idStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrInvalidRefresh
		}
		return uuid.Nil, err
	}
	return uuid.Parse(idStr)
}

// Revoke invalidates the live token of one device.
func (r *TokenRepo) Revoke(ctx context.Context, userID uuid.UUID, deviceID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND device_id=? AND revoked_at IS NULL",
		userID.String(), deviceID)
	return err
}

// RevokeAll invalidates every live token of a user. Used by logout-all,
// password change and account deletion.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID.String())
	return err
}
