package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/blog0/narrator/internal/config"
	"github.com/hibiken/asynq"
)

// StartScheduler creates and starts an Asynq Scheduler that enqueues post
// generation on cfg.PostSchedule. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config, logger *slog.Logger) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	location := scheduleLocation(cfg.ScheduleTimezone, logger)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	entryID, err := scheduler.Register(cfg.PostSchedule, newGeneratePostTask(cfg.PostTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to register post schedule: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info(
		"Scheduler started",
		"schedule", cfg.PostSchedule,
		"timezone", location.String(),
		"entry_id", entryID,
	)

	return func() { scheduler.Shutdown() }, nil
}

func scheduleLocation(name string, logger *slog.Logger) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Invalid timezone, using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return location
}
