package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blog0/narrator/internal/pipeline"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskGeneratePost      = "post:generate"
	TaskGeneratePostAudio = "post:generate-audio"
)

// ErrAlreadyQueued is returned when audio generation for the same post is
// already waiting or running.
var ErrAlreadyQueued = errors.New("audio generation already queued for this post")

// ErrInvalidPostID is returned for post ids that are not UUIDs.
var ErrInvalidPostID = errors.New("invalid post id")

// audioDedupWindow is how long an enqueued post blocks another enqueue of the same post.
const audioDedupWindow = 10 * time.Minute

// GeneratePostAudioPayload is the payload of TaskGeneratePostAudio.
type GeneratePostAudioPayload struct {
	PostID string `json:"postId"`
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues tasks for the worker.
type Client struct {
	queue        enqueuer
	audioTimeout time.Duration
}

// NewClient connects a task client to the Redis instance behind redisURL.
// audioTimeout bounds each narration task; zero means the pipeline default.
func NewClient(redisURL string, audioTimeout time.Duration) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{queue: asynq.NewClient(opt), audioTimeout: audioTimeout}, nil
}

// Close closes the client connection gracefully.
func (c *Client) Close() error {
	return c.queue.Close()
}

// NewGeneratePostAudioTask builds the narration task for postID.
// The task is bounded by timeout, retried up to 3 times and retained for
// 24 hours after completion.
func NewGeneratePostAudioTask(postID string, timeout time.Duration) (*asynq.Task, error) {
	if _, err := uuid.Parse(postID); err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidPostID, postID)
	}

	payload, err := json.Marshal(GeneratePostAudioPayload{PostID: postID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskGeneratePostAudio, payload, generatePostAudioOptions(timeout)...), nil
}

func generatePostAudioOptions(timeout time.Duration) []asynq.Option {
	if timeout <= 0 {
		timeout = pipeline.DefaultAudioTimeout
	}
	return []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(timeout),
		asynq.Retention(24 * time.Hour),
		asynq.Unique(audioDedupWindow),
	}
}

// EnqueueGeneratePostAudio enqueues narration of postID. At most one task per
// post is queued at a time; a duplicate returns ErrAlreadyQueued.
func (c *Client) EnqueueGeneratePostAudio(ctx context.Context, postID string) error {
	task, err := NewGeneratePostAudioTask(postID, c.audioTimeout)
	if err != nil {
		return err
	}

	if _, err := c.queue.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return ErrAlreadyQueued
		}
		return fmt.Errorf("failed to enqueue %s: %w", TaskGeneratePostAudio, err)
	}
	return nil
}

// newGeneratePostTask builds the scheduled generation task. It is never
// retried: the next scheduled run is the retry.
func newGeneratePostTask(timeout time.Duration) *asynq.Task {
	return asynq.NewTask(
		TaskGeneratePost,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(timeout),
		asynq.Retention(24*time.Hour),
		asynq.Unique(timeout),
	)
}
