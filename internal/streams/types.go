package streams

import "time"

// Stream and consumer group defaults
const (
	StreamPostEvents     = "post:events"
	GroupNarratorWorkers = "narrator-workers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Post event types
const (
	EventPostCreated = "post.created"
	EventPostUpdated = "post.updated"
)

// PostEvent announces a change to a blog post.
type PostEvent struct {
	Type       string    `json:"type"`
	PostID     string    `json:"post_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
