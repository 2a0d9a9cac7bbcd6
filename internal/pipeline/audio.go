// Package pipeline runs the post generation and post narration jobs.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blog0/narrator/internal/models"
	"github.com/blog0/narrator/internal/posts"
)

const audioJobName = "generate-post-audio"

// DefaultAudioTimeout bounds a whole narration run.
const DefaultAudioTimeout = 5 * time.Minute

// PostStore reads a post and persists its audio URLs.
type PostStore interface {
	FindByID(ctx context.Context, id string) (*models.Post, error)
	SetAudioURLs(ctx context.Context, id, rawMarkdownAudioURL, summaryAudioURL string) error
}

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// MediaStore uploads a file and returns its public URL.
type MediaStore interface {
	Upload(ctx context.Context, name string, content io.Reader) (string, error)
}

// AudioResult describes how a narration run ended.
type AudioResult struct {
	PostID string
	State  State
	// FailedAt is the step that was running when the job failed.
	FailedAt            State
	RawMarkdownAudioURL string
	SummaryAudioURL     string
}

// AudioJob narrates a post's body and summary and stores both URLs.
// Nothing is written to the post unless every upstream call succeeded.
type AudioJob struct {
	posts   PostStore
	synth   Synthesizer
	media   MediaStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewAudioJob wires an AudioJob. A zero timeout means DefaultAudioTimeout.
func NewAudioJob(store PostStore, synth Synthesizer, media MediaStore, logger *slog.Logger, timeout time.Duration) *AudioJob {
	if timeout <= 0 {
		timeout = DefaultAudioTimeout
	}
	return &AudioJob{
		posts:   store,
		synth:   synth,
		media:   media,
		logger:  logger,
		timeout: timeout,
	}
}

type audioRun struct {
	result *AudioResult
	logger *slog.Logger
}

func (r *audioRun) enter(state State) {
	r.result.State = state
	r.logger.Debug("generate post audio step", "state", state)
}

func (r *audioRun) fail(err error) error {
	r.result.FailedAt = r.result.State
	r.result.State = StateFailed

	var notFound *PostNotFoundError
	var empty *EmptyContentError
	switch {
	case errors.As(err, &notFound):
		r.result.State = StateNotFound
	case errors.As(err, &empty):
	default:
		err = &StepError{Job: audioJobName, Key: r.result.PostID, State: r.result.FailedAt, Err: err}
	}

	r.logger.Error("generate post audio failed",
		"state", r.result.FailedAt,
		"timeout", errors.Is(err, context.DeadlineExceeded),
		"error", err.Error(),
	)
	return err
}

// Run executes the job for postID. The returned result is never nil.
func (j *AudioJob) Run(ctx context.Context, postID string) (*AudioResult, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	run := &audioRun{
		result: &AudioResult{PostID: postID, State: StateScheduled},
		logger: j.logger.With("job", audioJobName, "post_id", postID),
	}
	run.logger.Info("generate post audio started")

	run.enter(StateFetchingPost)
	post, err := j.posts.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			return run.result, run.fail(&PostNotFoundError{PostID: postID})
		}
		return run.result, run.fail(err)
	}

	// Both texts are checked before the first paid synthesis call.
	if strings.TrimSpace(post.RawMarkdown) == "" {
		return run.result, run.fail(&EmptyContentError{PostID: postID, Variant: VariantRawMarkdown})
	}
	if strings.TrimSpace(post.Summary) == "" {
		return run.result, run.fail(&EmptyContentError{PostID: postID, Variant: VariantSummary})
	}

	run.enter(StateSynthesizingBody)
	bodyAudio, err := j.synth.Synthesize(ctx, post.RawMarkdown)
	if err != nil {
		return run.result, run.fail(err)
	}

	run.enter(StateSynthesizingSummary)
	summaryAudio, err := j.synth.Synthesize(ctx, post.Summary)
	if err != nil {
		return run.result, run.fail(err)
	}

	run.enter(StateUploadingBody)
	bodyURL, err := j.media.Upload(ctx, AudioFileName(postID, VariantRawMarkdown), bytes.NewReader(bodyAudio))
	if err != nil {
		return run.result, run.fail(err)
	}

	run.enter(StateUploadingSummary)
	summaryURL, err := j.media.Upload(ctx, AudioFileName(postID, VariantSummary), bytes.NewReader(summaryAudio))
	if err != nil {
		return run.result, run.fail(err)
	}

	run.enter(StatePersisting)
	if err := ctx.Err(); err != nil {
		return run.result, run.fail(err)
	}
	if err := j.posts.SetAudioURLs(ctx, postID, bodyURL, summaryURL); err != nil {
		if errors.Is(err, posts.ErrNotFound) {
			// deleted while we were narrating it
			return run.result, run.fail(&PostNotFoundError{PostID: postID})
		}
		return run.result, run.fail(fmt.Errorf("persist audio urls: %w", err))
	}

	run.result.RawMarkdownAudioURL = bodyURL
	run.result.SummaryAudioURL = summaryURL
	run.enter(StateCompleted)

	run.logger.Info("generate post audio completed",
		"raw_markdown_audio_url", bodyURL,
		"summary_audio_url", summaryURL,
	)
	return run.result, nil
}
