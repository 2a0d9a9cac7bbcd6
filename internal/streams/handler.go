package streams

import (
	"context"
	"errors"
	"log/slog"

	"github.com/blog0/narrator/internal/worker"
)

// AudioEnqueuer queues narration of a post.
type AudioEnqueuer interface {
	EnqueueGeneratePostAudio(ctx context.Context, postID string) error
}

// HandlePostEvent returns a handler that queues narration for updated posts,
// and for created posts when narrateOnCreate is set. Other event types are
// ignored.
func HandlePostEvent(enqueuer AudioEnqueuer, narrateOnCreate bool, logger *slog.Logger) EventHandler {
	return func(ctx context.Context, event PostEvent) error {
		switch event.Type {
		case EventPostUpdated:
		case EventPostCreated:
			if !narrateOnCreate {
				return nil
			}
		default:
			logger.Debug("Ignoring post event", "type", event.Type, "post_id", event.PostID)
			return nil
		}

		err := enqueuer.EnqueueGeneratePostAudio(ctx, event.PostID)
		switch {
		case err == nil:
			logger.Info("Queued post audio", "type", event.Type, "post_id", event.PostID)
			return nil
		case errors.Is(err, worker.ErrAlreadyQueued):
			logger.Info("Post audio already queued", "post_id", event.PostID)
			return nil
		case errors.Is(err, worker.ErrInvalidPostID):
			// redelivery cannot fix a bad id
			logger.Warn("Ignoring post event with invalid post id", "post_id", event.PostID)
			return nil
		default:
			return err
		}
	}
}
