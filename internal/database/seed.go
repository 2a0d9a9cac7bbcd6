package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blog0/narrator/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const seedSlug = "dev-narration-sample"

// SeedDevData inserts a published sample post so the audio job can be
// exercised locally. Idempotent: skips if the sample post already exists.
// Returns the id of the sample post.
func SeedDevData(db *gorm.DB, logger *slog.Logger) (string, error) {
	var existing models.Post
	err := db.Where("slug = ?", seedSlug).First(&existing).Error
	if err == nil {
		logger.Info("Seed data already exists, skipping", "post_id", existing.ID)
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up seed post: %w", err)
	}

	slug := seedSlug
	now := time.Now().UTC()
	post := models.Post{
		ID:       uuid.NewString(),
		AuthorID: uuid.NewString(),
		Title:    "Narration sample",
		Slug:     &slug,
		RawMarkdown: "# Narration sample\n\n" +
			"This post exists so the narration pipeline has something to read aloud in development.",
		Summary:     "A short post used to try the narration pipeline locally.",
		PublishedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := db.Create(&post).Error; err != nil {
		return "", fmt.Errorf("failed to seed sample post: %w", err)
	}

	logger.Info("Seeded dev data: 1 post", "post_id", post.ID)
	return post.ID, nil
}
