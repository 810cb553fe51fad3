package chathub

import (
	"campusconnect/backend/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BroadcastChannel is the Redis channel shared by all instances.
const BroadcastChannel = "chat:broadcast"

const publishTimeout = 2 * time.Second

// EventBus is the Redis pub/sub surface of the storage layer.
type EventBus interface {
	PublishEvent(ctx context.Context, channel string, payload []byte) error
	SubscribeEvents(ctx context.Context, channel string) (*redis.PubSub, error)
}

type envelope struct {
	Origin  string       `json:"origin"`
	GroupID string       `json:"group_id"`
	Event   models.Event `json:"event"`
}

// RedisRelay mirrors local broadcasts to other instances and applies
// theirs locally. Events that originate here are never re-delivered.
type RedisRelay struct {
	bus    EventBus
	origin string
	ready  chan struct{}
	log    *slog.Logger
}

func NewRedisRelay(bus EventBus, log *slog.Logger) *RedisRelay {
	origin := uuid.NewString()
	return &RedisRelay{
		bus:    bus,
		origin: origin,
		ready:  make(chan struct{}),
		log:    log.With("instance", origin),
	}
}

// Publish implements Publisher. Failures are logged, never surfaced.
func (r *RedisRelay) Publish(groupID string, evt models.Event) {
	payload, err := json.Marshal(envelope{Origin: r.origin, GroupID: groupID, Event: evt})
	if err != nil {
		r.log.Error("failed to encode relay envelope", "group_id", groupID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := r.bus.PublishEvent(ctx, BroadcastChannel, payload); err != nil {
		r.log.Warn("failed to publish event", "group_id", groupID, "type", evt.Type, "error", err)
	}
}

// Ready is closed once the subscription is confirmed.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes to the broadcast channel and hands every foreign event to
// deliver until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, deliver func(groupID string, evt models.Event)) error {
	pubsub, err := r.bus.SubscribeEvents(ctx, BroadcastChannel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", BroadcastChannel, err)
	}
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", BroadcastChannel, err)
	}
	close(r.ready)
	r.log.Info("relay subscribed", "channel", BroadcastChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.log.Warn("dropping malformed relay payload", "error", err)
				continue
			}
			if env.Origin == r.origin {
				continue
			}
			deliver(env.GroupID, env.Event)
		}
	}
}
