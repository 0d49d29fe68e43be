package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-platform/internal/model"
)

// CommentRepo persists comments. Comments are hard-deleted; their
// author or an admin may remove them.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a comment on an active post.
func (r *CommentRepo) Create(ctx context.Context, postID, authorID uuid.UUID, body string) (model.Comment, error) {
	// Guard against commenting on a deleted post; the FK alone would allow it.
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE id=? AND deleted_at IS NULL",
		postID.String()).Scan(&n); err != nil {
		return model.Comment{}, err
	}
	if n == 0 {
		return model.Comment{}, ErrNotFound
	}

	id := uuid.New()
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (id, post_id, author_id, body) VALUES (?,?,?,?)",
		id.String(), postID.String(), authorID.String(), body); err != nil {
		return model.Comment{}, err
	}
	return r.GetByID(ctx, id)
}

// GetByID fetches a single comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Comment, error) {
	var (
		c      model.Comment
		idStr  string
		post   string
		author string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,post_id,author_id,body,created_at,updated_at FROM comments WHERE id=? LIMIT 1",
		id.String()).Scan(&idStr, &post, &author, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Comment{}, ErrNotFound
		}
		return model.Comment{}, err
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return model.Comment{}, err
	}
	if c.PostID, err = uuid.Parse(post); err != nil {
		return model.Comment{}, err
	}
	if c.AuthorID, err = uuid.Parse(author); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

// ListByPost returns a post's comments, oldest first.
func (r *CommentRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]model.Comment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,post_id,author_id,body,created_at,updated_at FROM comments WHERE post_id=? ORDER BY created_at ASC",
		postID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		var (
			c      model.Comment
			idStr  string
			post   string
			author string
		)
		if err := rows.Scan(&idStr, &post, &author, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		if c.ID, err = uuid.Parse(idStr); err != nil {
			return nil, err
		}
		if c.PostID, err = uuid.Parse(post); err != nil {
			return nil, err
		}
		if c.AuthorID, err = uuid.Parse(author); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a comment when the caller wrote it or is an admin.
func (r *CommentRepo) Delete(ctx context.Context, id, callerID uuid.UUID, asAdmin bool) error {
	var authorStr string
	err := r.DB.QueryRowContext(ctx,
		"SELECT author_id FROM comments WHERE id=?", id.String()).Scan(&authorStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !asAdmin && authorStr != callerID.String() {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM comments WHERE id=?", id.String())
	return err
}
