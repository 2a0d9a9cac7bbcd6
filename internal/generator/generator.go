// Package generator invents new blog posts with a language model.
package generator

import (
	"context"
	"fmt"
	"time"
)

// Request is a single schema-constrained completion.
type Request struct {
	Prompt      string
	Schema      string
	SchemaName  string
	MaxTokens   int
	Temperature float64
}

// Model returns the raw JSON text a provider produced for a Request.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Content is a freshly generated article, ready to publish.
type Content struct {
	Title       string
	Slug        string
	RawMarkdown string
}

// Options tunes the generation request.
type Options struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces novel articles from a fixed prompt.
type Generator struct {
	model Model
	opts  Options
	now   func() time.Time
}

// New creates a Generator. The prompt must not be empty.
func New(model Model, opts Options) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("generator: model is required")
	}
	if opts.Prompt == "" {
		return nil, fmt.Errorf("generator: prompt is required")
	}
	return &Generator{model: model, opts: opts, now: time.Now}, nil
}

// GenerateContent asks the model for one article and derives its slug.
func (g *Generator) GenerateContent(ctx context.Context) (*Content, error) {
	now := g.now().UTC()

	raw, err := g.model.Complete(ctx, Request{
		Prompt:      fmt.Sprintf("%s Current date: %s.", g.opts.Prompt, now.Format("January 2006")),
		Schema:      ArticleSchema,
		SchemaName:  ArticleSchemaName,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("content model call failed: %w", err)
	}

	article, err := decodeArticle(raw)
	if err != nil {
		return nil, err
	}

	return &Content{
		Title:       article.Post.Title,
		Slug:        DeriveSlug(article.Post.Title, now),
		RawMarkdown: article.Post.MarkdownContent,
	}, nil
}
