package models

import "time"

// Post is a blog article. The pipeline reads the text fields and writes the
// two audio URL columns; everything else is owned by the blog backend.
type Post struct {
	ID                  string  `gorm:"type:uuid;primaryKey"`
	AuthorID            string  `gorm:"type:uuid;not null;index"`
	Title               string  `gorm:"not null"`
	Slug                *string `gorm:"uniqueIndex"`
	RawMarkdown         string  `gorm:"column:raw_markdown;type:text;not null"`
	Summary             string  `gorm:"type:text;not null"`
	RawMarkdownAudioURL *string `gorm:"column:raw_markdown_audio_url;type:text"`
	SummaryAudioURL     *string `gorm:"column:summary_audio_url;type:text"`
	PublishedAt         *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName pins the table name used by the blog backend.
func (Post) TableName() string {
	return "posts"
}

// IsDraft reports whether the post has not been published yet.
func (p *Post) IsDraft() bool {
	return p.PublishedAt == nil
}
