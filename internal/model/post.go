package model

import (
    "time"

    "github.com/google/uuid"
)

// Post mirrors the `posts` table.  Slugs are unique; the repository
// retries a bounded number of times with a random suffix when an insert
// collides.  DeletedAt implements the same soft-delete convention as
// users.
type Post struct {
    ID        uuid.UUID  // posts.id
    AuthorID  uuid.UUID  // posts.author_id
    Slug      string     // posts.slug
    Title     string     // posts.title
    Body      string     // posts.body
    DeletedAt *time.Time // posts.deleted_at (nullable)
    CreatedAt time.Time  // posts.created_at
    UpdatedAt time.Time  // posts.updated_at
}

// Tag mirrors the `tags` table.  Tags are shared across posts through
// the `post_tags` join table and are created on demand.
type Tag struct {
    ID   uint64 // tags.id
    Name string // tags.name
}

// Comment mirrors the `comments` table.  Comments are hard-deleted by
// their author or by an admin.
type Comment struct {
    ID        uuid.UUID // comments.id
    PostID    uuid.UUID // comments.post_id
    AuthorID  uuid.UUID // comments.author_id
    Body      string    // comments.body
    CreatedAt time.Time // comments.created_at
    UpdatedAt time.Time // comments.updated_at
}

// Like mirrors the `likes` table.  One row per (post_id, user_id);
// liking twice is a no-op and unliking an absent row is a no-op.
type Like struct {
    ID        uint64    // likes.id
    PostID    uuid.UUID // likes.post_id
    UserID    uuid.UUID // likes.user_id
    CreatedAt time.Time // likes.created_at
}
