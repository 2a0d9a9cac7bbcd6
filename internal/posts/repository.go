// Package posts reads and updates post rows for the narration pipeline.
package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blog0/narrator/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no post matches the requested id.
var ErrNotFound = errors.New("post not found")

// Repository is the GORM-backed post store.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository creates a Repository on top of an open GORM connection
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// FindByID loads the full post row.
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch post %s: %w", id, err)
	}
	return &post, nil
}

// SetAudioURLs writes both audio URLs in a single UPDATE keyed by id.
// updated_at never moves backwards, even if the worker clock does.
func (r *Repository) SetAudioURLs(ctx context.Context, id, rawMarkdownAudioURL, summaryAudioURL string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"raw_markdown_audio_url": rawMarkdownAudioURL,
			"summary_audio_url":      summaryAudioURL,
			"updated_at":             gorm.Expr("GREATEST(updated_at, ?)", r.now().UTC()),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update audio urls for post %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return nil
}
