package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blog0/narrator/internal/config"
	"github.com/blog0/narrator/internal/database"
	"github.com/blog0/narrator/internal/generator"
	"github.com/blog0/narrator/internal/media"
	"github.com/blog0/narrator/internal/pipeline"
	"github.com/blog0/narrator/internal/posts"
	"github.com/blog0/narrator/internal/publishing"
	"github.com/blog0/narrator/internal/speech"
	"github.com/blog0/narrator/internal/streams"
	"gorm.io/gorm"
)

func openDatabase(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	return database.Init(ctx, cfg.DatabaseURL, database.DefaultPoolOptions)
}

func newAudioJob(cfg *config.Config, db *gorm.DB, logger *slog.Logger) (*pipeline.AudioJob, error) {
	synth, err := speech.NewElevenLabs(speech.Options{
		APIURL:       cfg.ElevenLabsAPIURL,
		APIKey:       cfg.ElevenLabsAPIKey,
		VoiceID:      cfg.Settings.Narration.VoiceID,
		ModelID:      cfg.Settings.Narration.ModelID,
		OutputFormat: cfg.Settings.Narration.OutputFormat,
	})
	if err != nil {
		return nil, err
	}

	store, err := media.NewS3Store(media.Options{
		Bucket:        cfg.MediaBucket,
		Region:        cfg.MediaRegion,
		Endpoint:      cfg.MediaEndpoint,
		PublicBaseURL: cfg.MediaPublicBaseURL,
		KeyPrefix:     cfg.MediaKeyPrefix,
	}, logger)
	if err != nil {
		return nil, err
	}

	return pipeline.NewAudioJob(posts.NewRepository(db), synth, store, logger, cfg.AudioTimeout), nil
}

// newPostJob wires the generation job. announcer may be nil.
func newPostJob(cfg *config.Config, announcer *streams.Publisher, logger *slog.Logger) (*pipeline.PostJob, error) {
	gen, err := generator.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create content generator: %w", err)
	}

	publisher, err := publishing.NewClient(cfg.PublishingAPIURL, cfg.PublishingAPIToken)
	if err != nil {
		return nil, err
	}

	if announcer == nil {
		return pipeline.NewPostJob(gen, publisher, nil, logger, cfg.PostTimeout), nil
	}
	return pipeline.NewPostJob(gen, publisher, announcer, logger, cfg.PostTimeout), nil
}
