package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// OAuthRepo reads and detaches external-identity links. The OAuth flows
// themselves live outside this service; the auth core only needs the
// provider names for profile responses and a way to cut the links when
// an account is deleted.
type OAuthRepo struct{ DB *sql.DB }

func NewOAuthRepo(db *sql.DB) *OAuthRepo { return &OAuthRepo{DB: db} }

// ProvidersForUser lists the provider names linked to a user, ordered
// for stable responses. An unlinked user yields an empty, non-nil slice.
func (r *OAuthRepo) ProvidersForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT provider FROM oauth_accounts WHERE user_id=? ORDER BY provider",
		userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	providers := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return providers, rows.Err()
}

// DetachAllForUser removes every external-identity link of a user.
func (r *OAuthRepo) DetachAllForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM oauth_accounts WHERE user_id=?", userID.String())
	return err
}
