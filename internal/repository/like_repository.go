package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// LikeRepo persists post likes. The unique (post_id, user_id) index
// makes Like idempotent; Unlike of an absent row is a no-op.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Like records that a user liked a post. Liking twice changes nothing.
func (r *LikeRepo) Like(ctx context.Context, postID, userID uuid.UUID) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE id=? AND deleted_at IS NULL",
		postID.String()).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO likes (post_id, user_id) VALUES (?,?)",
		postID.String(), userID.String())
	return err
}

// Unlike removes a user's like from a post.
func (r *LikeRepo) Unlike(ctx context.Context, postID, userID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM likes WHERE post_id=? AND user_id=?",
		postID.String(), userID.String())
	return err
}

// Count returns how many likes a post has.
func (r *LikeRepo) Count(ctx context.Context, postID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM likes WHERE post_id=?", postID.String()).Scan(&n)
	return n, err
}
