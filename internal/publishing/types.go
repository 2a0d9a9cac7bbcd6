// Package publishing submits generated posts to the blog's public API
package publishing

import "time"

// CreatePostRequest is the body of POST /api/p/v1/posts
type CreatePostRequest struct {
	RawMarkdown string `json:"raw_markdown"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Publish     bool   `json:"publish,omitempty"`
}

// PostRecord is the post representation returned by the API
type PostRecord struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	RawMarkdown string     `json:"raw_markdown"`
	Summary     string     `json:"summary"`
	Tags        []string   `json:"tags"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}
