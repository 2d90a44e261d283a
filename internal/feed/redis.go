package feed

import (
	"context"
	"fmt"

	"supportdesk/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// redisPublisher is the part of the redis client used for publishing
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisFeed publishes and subscribes thread messages over redis pub/sub
type RedisFeed struct {
	client    *redis.Client
	publisher redisPublisher
	logger    zerolog.Logger
}

// NewRedisFeed connects to redis and verifies the connection
func NewRedisFeed(ctx context.Context, addr, password string, db int, logger zerolog.Logger) (*RedisFeed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisFeed{
		client:    client,
		publisher: client,
		logger:    logger.With().Str("component", "feed").Logger(),
	}, nil
}

// Publish sends a visible message to the thread channel. Internal messages are dropped.
func (f *RedisFeed) Publish(ctx context.Context, msg models.Message) error {
	if msg.Internal() {
		return nil
	}
	payload, err := encode(msg)
	if err != nil {
		return err
	}
	if err := f.publisher.Publish(ctx, Channel(msg.ThreadID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe streams the thread channel until ctx is done
func (f *RedisFeed) Subscribe(ctx context.Context, threadID string) (<-chan models.Message, error) {
	pubsub := f.client.Subscribe(ctx, Channel(threadID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to thread %s: %w", threadID, err)
	}

	out := make(chan models.Message, subscriberBuffer)
	incoming := pubsub.Channel()

	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-incoming:
				if !ok {
					return
				}
				msg, err := decode(raw.Payload)
				if err != nil {
					f.logger.Warn().Err(err).Str("thread_id", threadID).Msg("Dropping malformed feed message")
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Ping checks the redis connection
func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

// Close closes the redis client
func (f *RedisFeed) Close() error {
	return f.client.Close()
}
