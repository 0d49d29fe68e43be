package search

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
)

// sqlEngine answers queries straight from the posts table with LIKE
// filters. Indexing is a no-op because the table itself is the index;
// it exists so handlers can treat both backends uniformly.
type sqlEngine struct{ db *sql.DB }

func NewSQLEngine(db *sql.DB) Engine { return &sqlEngine{db: db} }

func (e *sqlEngine) IndexPost(ctx context.Context, doc Doc) error       { return nil }
func (e *sqlEngine) RemovePost(ctx context.Context, id uuid.UUID) error { return nil }

func (e *sqlEngine) Search(ctx context.Context, q Query) ([]Doc, int64, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	for _, term := range strings.Fields(strings.ToLower(q.Text)) {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(body) LIKE ?)")
		pat := "%" + term + "%"
		args = append(args, pat, pat)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 || size > 100 {
		size = 20
	}
	args = append(args, size, (page-1)*size)

	rows, err := e.db.QueryContext(ctx,
		"SELECT id, slug, title, LEFT(body, 200) FROM posts WHERE "+cond+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Doc{}
	for rows.Next() {
		var (
			d     Doc
			idStr string
		)
		if err := rows.Scan(&idStr, &d.Slug, &d.Title, &d.Snippet); err != nil {
			return nil, 0, err
		}
		if d.ID, err = uuid.Parse(idStr); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
