// Package search abstracts the post search backend. Two implementations
// exist: one that queries MySQL directly with LIKE filters and one that
// maintains an inverted index in Redis. The backend is chosen once at
// startup from configuration; nothing selects engines dynamically after
// that.
package search

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Doc is the indexed representation of a post.
type Doc struct {
	ID      uuid.UUID `json:"id"`
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Snippet string    `json:"snippet"`
}

// Query carries search terms and pagination.
type Query struct {
	Text     string
	Page     int
	PageSize int
}

// Engine indexes posts and answers text queries. IndexPost is called on
// create and update, RemovePost on delete. Implementations must be safe
// for concurrent use.
type Engine interface {
	IndexPost(ctx context.Context, doc Doc) error
	RemovePost(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, q Query) ([]Doc, int64, error)
}

// New selects the engine for the configured backend name. "redis"
// requires a live client; when rdb is nil the SQL engine is used so the
// service still starts without Redis.
func New(backend string, db *sql.DB, rdb *redis.Client) Engine {
	if backend == "redis" && rdb != nil {
		return NewRedisEngine(rdb)
	}
	return NewSQLEngine(db)
}
