package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher publishes post events to a Redis Stream
type Publisher struct {
	rdb    streamAdder
	closer func() error
	stream string
	now    func() time.Time
}

// NewPublisher creates a Publisher writing to stream.
func NewPublisher(redisURL, stream string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	return newPublisher(client, client.Close, stream), nil
}

func newPublisher(rdb streamAdder, closer func() error, stream string) *Publisher {
	if stream == "" {
		stream = StreamPostEvents
	}
	return &Publisher{rdb: rdb, closer: closer, stream: stream, now: time.Now}
}

// PublishPostEvent appends event to the stream and returns the message ID.
func (p *Publisher) PublishPostEvent(ctx context.Context, event PostEvent) (string, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   p.now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})

	if result.Err() != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return result.Val(), nil
}

// AnnouncePostCreated publishes a post.created event for postID.
func (p *Publisher) AnnouncePostCreated(ctx context.Context, postID string) error {
	_, err := p.PublishPostEvent(ctx, PostEvent{Type: EventPostCreated, PostID: postID})
	return err
}

// Close closes the Redis client connection
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
