// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// PostPublishedEvent is published when a post is created or updated.
// It carries enough for downstream consumers (notifications, analytics,
// external indexers) to act without querying the primary database.
type PostPublishedEvent struct {
    PostID      string   `json:"post_id"`
    AuthorID    string   `json:"author_id"`
    Slug        string   `json:"slug"`
    Title       string   `json:"title"`
    Tags        []string `json:"tags"`
    PublishedAt string   `json:"published_at"`
}
