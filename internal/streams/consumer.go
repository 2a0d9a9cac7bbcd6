package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventHandler processes one post event. A returned error leaves the message
// pending; it is handed to a handler again once it has been idle for
// the consumer's reclaim interval.
type EventHandler func(ctx context.Context, event PostEvent) error

// DefaultReclaimInterval is how long a failed message stays pending before it
// is retried, and how often pending messages are checked.
const DefaultReclaimInterval = 30 * time.Second

type acker interface {
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type pendingClaimer interface {
	acker
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// Consumer consumes post events from a Redis Stream with a consumer group
type Consumer struct {
	rdb          *redis.Client
	stream       string
	groupName    string
	consumerName string
	reclaimAfter time.Duration
	logger       *slog.Logger
}

// NewConsumer creates a Consumer and its group on stream if missing.
func NewConsumer(redisURL, stream, consumerName string, logger *slog.Logger) (*Consumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	if stream == "" {
		stream = StreamPostEvents
	}

	// "$" skips history: only events published after the group exists are narrated
	err = client.XGroupCreateMkStream(context.Background(), stream, GroupNarratorWorkers, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		client.Close()
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &Consumer{
		rdb:          client,
		stream:       stream,
		groupName:    GroupNarratorWorkers,
		consumerName: consumerName,
		reclaimAfter: DefaultReclaimInterval,
		logger:       logger.With("stream", stream, "consumer", consumerName),
	}, nil
}

// Consume runs a blocking loop delivering events to handler until ctx is done.
// Messages left pending by a failed handler, or by a consumer that died, are
// claimed and retried every reclaim interval.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	var lastReclaim time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(lastReclaim) >= c.reclaimAfter {
			if _, err := c.reclaim(ctx, c.rdb, handler); err != nil && ctx.Err() == nil {
				c.logger.Error("Failed to reclaim pending messages", "error", err)
			}
			lastReclaim = time.Now()
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err == redis.Nil {
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Blocking reads time out when nothing arrives within Block
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			c.logger.Error("Failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.process(ctx, c.rdb, message, handler)
			}
		}
	}
}

// process handles one message and acks it unless the handler failed.
// Messages that can never be handled (bad payload) are acked and dropped.
func (c *Consumer) process(ctx context.Context, ack acker, message redis.XMessage, handler EventHandler) (acked bool) {
	event, err := decodeMessage(message)
	if err != nil {
		c.logger.Error("Dropping invalid post event", "message_id", message.ID, "error", err)
	} else if err := handler(ctx, event); err != nil {
		c.logger.Error("Handler failed", "message_id", message.ID, "post_id", event.PostID, "error", err)
		// stays pending until reclaim picks it up again
		return false
	}

	if err := ack.XAck(ctx, c.stream, c.groupName, message.ID).Err(); err != nil {
		c.logger.Error("Failed to ACK message", "message_id", message.ID, "error", err)
		return false
	}
	return true
}

// reclaim claims every message that has been pending for at least the reclaim
// interval and runs it through process. Returns the number of messages acked.
func (c *Consumer) reclaim(ctx context.Context, rdb pendingClaimer, handler EventHandler) (int, error) {
	acked := 0
	start := "0-0"
	for {
		messages, next, err := rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.groupName,
			Consumer: c.consumerName,
			MinIdle:  c.reclaimAfter,
			Start:    start,
			Count:    10,
		}).Result()
		if err != nil {
			return acked, err
		}

		for _, message := range messages {
			c.logger.Info("Retrying pending post event", "message_id", message.ID)
			if c.process(ctx, rdb, message, handler) {
				acked++
			}
		}

		// "0-0" means the whole pending list has been scanned
		if next == "0-0" || next == "" || len(messages) == 0 {
			return acked, nil
		}
		start = next
	}
}

func decodeMessage(message redis.XMessage) (PostEvent, error) {
	var event PostEvent

	payload, ok := message.Values["payload"].(string)
	if !ok {
		return event, errors.New("missing payload field")
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// Close closes the Redis client connection
func (c *Consumer) Close() error {
	return c.rdb.Close()
}

// StartConsumer starts a consumer in a background goroutine and returns a
// stop function.
func StartConsumer(redisURL, stream, consumerName string, handler EventHandler, logger *slog.Logger) (stop func(), err error) {
	consumer, err := NewConsumer(redisURL, stream, consumerName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create post event consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := consumer.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Post event consumer stopped with error", "error", err)
		}
	}()

	logger.Info("Post event consumer started", "stream", consumer.stream, "group", consumer.groupName)

	return func() {
		cancel()
		<-done
		consumer.Close()
	}, nil
}
