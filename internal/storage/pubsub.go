package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrRedisDisabled is returned by the event bus when no Redis client is configured.
var ErrRedisDisabled = errors.New("redis is not configured")

// PublishEvent publishes a serialized event on a Redis channel.
func (s *Service) PublishEvent(ctx context.Context, channel string, payload []byte) error {
	if s.Redis == nil {
		return ErrRedisDisabled
	}
	return s.Redis.Publish(ctx, channel, payload).Err()
}

// SubscribeEvents opens a subscription on the channel; the caller closes it.
func (s *Service) SubscribeEvents(ctx context.Context, channel string) (*redis.PubSub, error) {
	if s.Redis == nil {
		return nil, ErrRedisDisabled
	}
	return s.Redis.Subscribe(ctx, channel), nil
}
