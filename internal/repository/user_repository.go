package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-platform/internal/model"
)

// UserRepo persists user records. It receives already-hashed passwords;
// raw secrets never cross this boundary. All reads except GetByIDAny
// treat soft-deleted rows as absent.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,password_hash,avatar_url,is_admin,consent_at,deleted_at,created_at,updated_at"

// Create inserts a user and returns the stored record. passwordHash may
// be nil for accounts provisioned through an external identity provider.
func (r *UserRepo) Create(ctx context.Context, username string, passwordHash *string, avatarURL string, consentAt time.Time) (model.User, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, avatar_url, consent_at) VALUES (?,?,?,?,?)",
		id.String(), username, passwordHash, avatarURL, consentAt.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrUsernameExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByUsername fetches an active user by exact (case-sensitive) username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? AND deleted_at IS NULL LIMIT 1",
		username)
	return scanUser(row)
}

// GetByID fetches an active user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND deleted_at IS NULL LIMIT 1",
		id.String())
	return scanUser(row)
}

// GetByIDAny fetches a user by id regardless of deletion state. Used for
// administrative audit, never for request authentication.
func (r *UserRepo) GetByIDAny(ctx context.Context, id uuid.UUID) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id.String())
	return scanUser(row)
}

// UsernameExists reports whether any row, deleted or not, holds the
// username. Soft-deleted rows keep their username reserved because the
// unique index still contains them.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=?", username).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdatePasswordHash replaces the password hash of an active user.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL",
		hash, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetPasswordHash sets a password hash only when the user has none yet.
// A user that already holds a credential matches no rows and the caller
// sees ErrNotFound, which the set-password flow maps to HTTP 404.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND password_hash IS NULL AND deleted_at IS NULL",
		hash, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// GrantAdmin flips is_admin for an active, not-yet-admin user. The flag
// is monotonic: nothing in this service ever clears it.
func (r *UserRepo) GrantAdmin(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_admin=1, updated_at=UTC_TIMESTAMP() WHERE id=? AND is_admin=0 AND deleted_at IS NULL",
		id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateAvatar changes the avatar URL of an active user.
func (r *UserRepo) UpdateAvatar(ctx context.Context, id uuid.UUID, avatarURL string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar_url=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL",
		avatarURL, id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SoftDelete marks an active user as deleted. Deleting an already
// deleted or unknown user returns ErrNotFound.
func (r *UserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at=UTC_TIMESTAMP(), updated_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL",
		id.String())
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		idStr   string
		pwHash  sql.NullString
		deleted sql.NullTime
	)
	err := row.Scan(&idStr, &u.Username, &pwHash, &u.AvatarURL, &u.IsAdmin,
		&u.ConsentAt, &deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.ID, err = uuid.Parse(idStr)
	if err != nil {
		return model.User{}, err
	}
	if pwHash.Valid {
		u.PasswordHash = &pwHash.String
	}
	if deleted.Valid {
		u.DeletedAt = &deleted.Time
	}
	return u, nil
}

// requireRow turns a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
