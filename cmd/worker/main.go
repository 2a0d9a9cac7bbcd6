package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blog0/narrator/internal/config"
	"github.com/blog0/narrator/internal/database"
	"github.com/blog0/narrator/internal/streams"
	"github.com/blog0/narrator/internal/worker"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	withScheduler bool
	withConsumer  bool
)

var rootCmd = &cobra.Command{
	Use:           "narrator",
	Short:         "Generates blog posts and narrates them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger = worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the task worker, optionally with the scheduler and post event consumer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		publisher, err := streams.NewPublisher(cfg.RedisURL, cfg.PostEventsStream)
		if err != nil {
			return err
		}
		defer publisher.Close()

		audioJob, err := newAudioJob(cfg, db, logger)
		if err != nil {
			return err
		}
		postJob, err := newPostJob(cfg, publisher, logger)
		if err != nil {
			return err
		}

		stopWorker, err := worker.Start(cfg, logger, worker.Jobs{Audio: audioJob, Post: postJob})
		if err != nil {
			return err
		}
		defer stopWorker()

		if withScheduler {
			stopScheduler, err := worker.StartScheduler(cfg, logger)
			if err != nil {
				return err
			}
			defer stopScheduler()
		}

		if withConsumer {
			tasks, err := worker.NewClient(cfg.RedisURL, cfg.AudioTimeout)
			if err != nil {
				return err
			}
			defer tasks.Close()

			hostname, _ := os.Hostname()
			stopConsumer, err := streams.StartConsumer(
				cfg.RedisURL,
				cfg.PostEventsStream,
				"narrator-"+hostname,
				streams.HandlePostEvent(tasks, cfg.AudioOnCreate, logger),
				logger,
			)
			if err != nil {
				return err
			}
			defer stopConsumer()
		}

		waitForSignal(ctx)
		logger.Info("Shutting down")
		return nil
	},
}

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run only the periodic post generation scheduler",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stop, err := worker.StartScheduler(cfg, logger)
		if err != nil {
			return err
		}
		defer stop()

		waitForSignal(cmd.Context())
		return nil
	},
}

var generatePostCmd = &cobra.Command{
	Use:   "generate-post",
	Short: "Generate and publish one post now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := newPostJob(cfg, nil, logger)
		if err != nil {
			return err
		}

		post, err := job.Run(cmd.Context(), time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("published %s (%s)\n", post.Slug, post.ID)
		return nil
	},
}

var generateAudioCmd = &cobra.Command{
	Use:   "generate-audio <postId>",
	Short: "Narrate a post now, bypassing the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		job, err := newAudioJob(cfg, db, logger)
		if err != nil {
			return err
		}

		result, err := job.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("raw_markdown: %s\nsummary: %s\n", result.RawMarkdownAudioURL, result.SummaryAudioURL)
		return nil
	},
}

var enqueueAudioCmd = &cobra.Command{
	Use:   "enqueue-audio <postId>",
	Short: "Queue narration of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := worker.NewClient(cfg.RedisURL, cfg.AudioTimeout)
		if err != nil {
			return err
		}
		defer tasks.Close()

		err = tasks.EnqueueGeneratePostAudio(cmd.Context(), args[0])
		switch {
		case errors.Is(err, worker.ErrAlreadyQueued):
			fmt.Println("already queued")
			return nil
		case err != nil:
			return err
		}
		fmt.Println("queued")
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := database.Up
		if len(args) == 1 {
			direction = database.Direction(args[0])
		}

		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		return database.RunMigrations(db, direction, logger)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert a sample published post for local development",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Env == "production" {
			return errors.New("refusing to seed a production database")
		}

		db, err := openDatabase(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		id, err := database.SeedDevData(db, logger)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func waitForSignal(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}

func init() {
	serveCmd.Flags().BoolVar(&withScheduler, "scheduler", true, "Also run the periodic post scheduler")
	serveCmd.Flags().BoolVar(&withConsumer, "consume-events", true, "Also consume post events and queue narration")

	rootCmd.AddCommand(serveCmd, schedulerCmd, generatePostCmd, generateAudioCmd, enqueueAudioCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
