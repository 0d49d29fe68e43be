package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/blog-platform/internal/model"
)

// PostRepo persists blog posts and their tag associations.
type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postColumns = "id,author_id,slug,title,body,deleted_at,created_at,updated_at"

// maxSlugAttempts bounds the retry loop on slug collisions. After the
// base slug fails, each retry appends a fresh random suffix; running out
// of attempts surfaces ErrSlugExhausted instead of looping forever.
const maxSlugAttempts = 5

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a title and collapses everything outside [a-z0-9]
// into single hyphens.
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "post"
	}
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	return s
}

func slugSuffix() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts a post together with its tags. Tag rows are created on
// demand inside the same transaction. The slug is derived from the title
// and retried with a random suffix on unique-key collisions.
func (r *PostRepo) Create(ctx context.Context, authorID uuid.UUID, title, body string, tags []string) (model.Post, error) {
	id := uuid.New()
	base := Slugify(title)
	slug := base

	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		err := r.insert(ctx, id, authorID, slug, title, body, tags)
		if err == nil {
			return r.GetByID(ctx, id)
		}
		if !strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Post{}, err
		}
		suffix, serr := slugSuffix()
		if serr != nil {
			return model.Post{}, serr
		}
		slug = base + "-" + suffix
	}
	return model.Post{}, ErrSlugExhausted
}

func (r *PostRepo) insert(ctx context.Context, id, authorID uuid.UUID, slug, title, body string, tags []string) (err error) {
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
		"INSERT INTO posts (id, author_id, slug, title, body) VALUES (?,?,?,?,?)",
		id.String(), authorID.String(), slug, title, body); err != nil {
		return err
	}
	return attachTags(ctx, tx, id, tags)
}

// attachTags ensures each tag row exists and links it to the post.
func attachTags(ctx context.Context, tx *sql.Tx, postID uuid.UUID, tags []string) error {
	for _, name := range tags {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO tags (name) VALUES (?)", name); err != nil {
			return err
		}
		var tagID uint64
		if err := tx.QueryRowContext(ctx,
			"SELECT id FROM tags WHERE name=?", name).Scan(&tagID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO post_tags (post_id, tag_id) VALUES (?,?)",
			postID.String(), tagID); err != nil {
			return err
		}
	}
	return nil
}

// GetByID fetches an active post by id.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Post, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id=? AND deleted_at IS NULL LIMIT 1",
		id.String())
	return scanPost(row)
}

// GetBySlug fetches an active post by slug.
func (r *PostRepo) GetBySlug(ctx context.Context, slug string) (model.Post, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE slug=? AND deleted_at IS NULL LIMIT 1",
		slug)
	return scanPost(row)
}

// List returns a page of active posts, newest first, and the total count.
func (r *PostRepo) List(ctx context.Context, page, pageSize int) ([]model.Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE deleted_at IS NULL").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT ? OFFSET ?",
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []model.Post{}
	for rows.Next() {
		p, err := scanPostRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Update rewrites title, body and tags of a post owned by authorID.
// Admins bypass the ownership check by passing asAdmin. The slug is kept
// stable across edits so links do not break.
func (r *PostRepo) Update(ctx context.Context, id, authorID uuid.UUID, asAdmin bool, title, body string, tags []string) (err error) {
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

	var ownerStr string
	if err = tx.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id=? AND deleted_at IS NULL",
		id.String()).Scan(&ownerStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if !asAdmin && ownerStr != authorID.String() {
		err = ErrForbidden
		return err
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE posts SET title=?, body=?, updated_at=UTC_TIMESTAMP() WHERE id=?",
		title, body, id.String()); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		"DELETE FROM post_tags WHERE post_id=?", id.String()); err != nil {
		return err
	}
	return attachTags(ctx, tx, id, tags)
}

// SoftDelete marks a post deleted, honoring the same ownership rule as
// Update.
func (r *PostRepo) SoftDelete(ctx context.Context, id, authorID uuid.UUID, asAdmin bool) error {
	var ownerStr string
	err := r.DB.QueryRowContext(ctx,
		"SELECT author_id FROM posts WHERE id=? AND deleted_at IS NULL",
		id.String()).Scan(&ownerStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if !asAdmin && ownerStr != authorID.String() {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE posts SET deleted_at=UTC_TIMESTAMP(), updated_at=UTC_TIMESTAMP() WHERE id=? AND deleted_at IS NULL",
		id.String())
	return err
}

// TagsForPost lists tag names attached to a post.
func (r *PostRepo) TagsForPost(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT t.name FROM tags t JOIN post_tags pt ON pt.tag_id = t.id WHERE pt.post_id=? ORDER BY t.name",
		id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func scanPost(row *sql.Row) (model.Post, error) {
	var (
		p       model.Post
		idStr   string
		author  string
		deleted sql.NullTime
	)
	err := row.Scan(&idStr, &author, &p.Slug, &p.Title, &p.Body, &deleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, ErrNotFound
		}
		return model.Post{}, err
	}
	return fillPost(p, idStr, author, deleted)
}

func scanPostRows(rows *sql.Rows) (model.Post, error) {
	var (
		p       model.Post
		idStr   string
		author  string
		deleted sql.NullTime
	)
	if err := rows.Scan(&idStr, &author, &p.Slug, &p.Title, &p.Body, &deleted, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return model.Post{}, err
	}
	return fillPost(p, idStr, author, deleted)
}

func fillPost(p model.Post, idStr, author string, deleted sql.NullTime) (model.Post, error) {
	var err error
	if p.ID, err = uuid.Parse(idStr); err != nil {
		return model.Post{}, err
	}
	if p.AuthorID, err = uuid.Parse(author); err != nil {
		return model.Post{}, err
	}
	if deleted.Valid {
		p.DeletedAt = &deleted.Time
	}
	return p, nil
}
