package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blog0/narrator/internal/config"
	"github.com/blog0/narrator/internal/pipeline"
	"github.com/blog0/narrator/internal/publishing"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// AudioRunner narrates one post.
type AudioRunner interface {
	Run(ctx context.Context, postID string) (*pipeline.AudioResult, error)
}

// PostRunner generates and publishes one post.
type PostRunner interface {
	Run(ctx context.Context, triggeredAt time.Time) (*publishing.PostRecord, error)
}

// Jobs are the task handlers' dependencies, built once at startup.
type Jobs struct {
	Audio AudioRunner
	Post  PostRunner
}

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
func Run(cfg *config.Config, logger *slog.Logger, jobs Jobs) error {
	srv, mux, err := newServer(cfg, logger, jobs)
	if err != nil {
		return err
	}
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this when the caller coordinates shutdown with other components.
func Start(cfg *config.Config, logger *slog.Logger, jobs Jobs) (stop func(), err error) {
	srv, mux, err := newServer(cfg, logger, jobs)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, logger *slog.Logger, jobs Jobs) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.WorkerConcurrency,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	logger.Info("Worker starting", "concurrency", cfg.WorkerConcurrency)
	return srv, newMux(logger, jobs), nil
}

func newMux(logger *slog.Logger, jobs Jobs) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGeneratePostAudio, handleGeneratePostAudio(logger, jobs.Audio))
	mux.HandleFunc(TaskGeneratePost, handleGeneratePost(logger, jobs.Post))
	return mux
}

// handleGeneratePostAudio narrates the post named in the payload.
func handleGeneratePostAudio(logger *slog.Logger, job AudioRunner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload GeneratePostAudioPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if _, err := uuid.Parse(payload.PostID); err != nil {
			logger.Error("Rejected audio task with invalid post id", "post_id", payload.PostID)
			return fmt.Errorf("invalid post id %q: %w", payload.PostID, asynq.SkipRetry)
		}

		logger.Info("Processing post:generate-audio task", "post_id", payload.PostID)
		if _, err := job.Run(ctx, payload.PostID); err != nil {
			if pipeline.IsFatal(err) {
				return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
			}
			return err
		}
		return nil
	}
}

// handleGeneratePost runs one scheduled generation. Failures are never
// retried by the queue.
func handleGeneratePost(logger *slog.Logger, job PostRunner) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		logger.Info("Processing post:generate task")
		if _, err := job.Run(ctx, time.Now()); err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Final failure: the task moves to the archive
		if retried >= maxRetry || errors.Is(err, asynq.SkipRetry) {
			logger.Error(
				"Task moved to dead letter queue",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
