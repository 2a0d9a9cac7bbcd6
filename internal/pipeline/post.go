package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/blog0/narrator/internal/generator"
	"github.com/blog0/narrator/internal/publishing"
)

const postJobName = "generate-post"

// DefaultPostTimeout bounds a whole post generation run.
const DefaultPostTimeout = 5 * time.Minute

// ContentGenerator invents an article.
type ContentGenerator interface {
	GenerateContent(ctx context.Context) (*generator.Content, error)
}

// PostPublisher creates posts on the blog.
type PostPublisher interface {
	CreatePost(ctx context.Context, post publishing.CreatePostRequest) (*publishing.PostRecord, error)
}

// PostAnnouncer tells other services that a post was created.
type PostAnnouncer interface {
	AnnouncePostCreated(ctx context.Context, postID string) error
}

// PostJob generates one article and publishes it. There is no retry inside a
// run: the next scheduled run is the retry.
type PostJob struct {
	generator ContentGenerator
	publisher PostPublisher
	announcer PostAnnouncer
	logger    *slog.Logger
	timeout   time.Duration
}

// NewPostJob wires a PostJob. announcer may be nil.
func NewPostJob(gen ContentGenerator, publisher PostPublisher, announcer PostAnnouncer, logger *slog.Logger, timeout time.Duration) *PostJob {
	if timeout <= 0 {
		timeout = DefaultPostTimeout
	}
	return &PostJob{
		generator: gen,
		publisher: publisher,
		announcer: announcer,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run generates and publishes a post. triggeredAt is the scheduler's fire time
// and is only used for logging.
func (j *PostJob) Run(ctx context.Context, triggeredAt time.Time) (*publishing.PostRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	logger := j.logger.With("job", postJobName, "triggered_at", triggeredAt.UTC().Format(time.RFC3339))
	logger.Info("generate post started")

	content, err := j.generator.GenerateContent(ctx)
	if err != nil {
		logger.Error("generate post failed", "step", "generate_content", "error", err.Error())
		return nil, &StepError{Job: postJobName, Key: triggeredAt.UTC().Format(time.RFC3339), State: StateGeneratingContent, Err: err}
	}

	post, err := j.publisher.CreatePost(ctx, publishing.CreatePostRequest{
		RawMarkdown: content.RawMarkdown,
		Slug:        content.Slug,
		Title:       content.Title,
		Publish:     true,
	})
	if err != nil {
		logger.Error("generate post failed",
			"step", "create_post",
			"slug", content.Slug,
			"retryable", publishing.IsRetryable(err),
			"error", err.Error(),
		)
		return nil, &StepError{Job: postJobName, Key: content.Slug, State: StatePublishing, Err: err}
	}

	logger.Info("generate post completed", "post_id", post.ID, "slug", post.Slug, "title", post.Title)

	if j.announcer != nil {
		if err := j.announcer.AnnouncePostCreated(ctx, post.ID); err != nil {
			// the post exists; a lost announcement only delays narration
			logger.Warn("failed to announce created post", "post_id", post.ID, "error", err.Error())
		}
	}

	return post, nil
}
