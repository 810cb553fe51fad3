package chathub_test

import (
	"campusconnect/backend/internal/chathub"
	"campusconnect/backend/internal/logging"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/storage"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instance struct {
	registry *chathub.Registry
	relay    *chathub.RedisRelay
	rdb      *redis.Client
}

func startInstance(t *testing.T, mr *miniredis.Miniredis) *instance {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	bus := storage.NewStorageService(nil, rdb, logging.Discard())
	reg := chathub.NewRegistry(logging.Discard())
	relay := chathub.NewRedisRelay(bus, logging.Discard())
	reg.SetPublisher(relay)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = relay.Run(ctx, func(groupID string, evt models.Event) {
			reg.DeliverLocal(groupID, evt)
		})
	}()

	select {
	case <-relay.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe in time")
	}
	return &instance{registry: reg, relay: relay, rdb: rdb}
}

func TestRedisRelay_FansOutAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	a, b := startInstance(t, mr), startInstance(t, mr)

	alice, bob := &recordingConn{}, &recordingConn{}
	a.registry.Register(alice, "study", "alice")
	b.registry.Register(bob, "study", "bob")

	// Bob's arrival on instance B reaches Alice on instance A.
	assert.Eventually(t, func() bool {
		return alice.count(models.EventUserJoined) == 1
	}, 2*time.Second, 10*time.Millisecond)

	a.registry.Broadcast("study", models.NewTypingEvent("alice", true), nil)

	assert.Eventually(t, func() bool {
		return bob.count(models.EventTyping) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The origin instance must not deliver its own event twice.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, alice.count(models.EventTyping))
}

func TestRedisRelay_IgnoresMalformedPayloads(t *testing.T) {
	mr := miniredis.RunT(t)
	a := startInstance(t, mr)
	conn := &recordingConn{}
	a.registry.Register(conn, "study", "alice")

	require.NoError(t, a.rdb.Publish(context.Background(), chathub.BroadcastChannel, "not json").Err())

	// A foreign instance's well-formed event still gets through afterwards.
	b := startInstance(t, mr)
	b.registry.Broadcast("study", models.NewTypingEvent("bob", true), nil)

	assert.Eventually(t, func() bool {
		return conn.count(models.EventTyping) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisRelay_RunFailsWithoutRedis(t *testing.T) {
	bus := storage.NewStorageService(nil, nil, logging.Discard())
	relay := chathub.NewRedisRelay(bus, logging.Discard())

	err := relay.Run(context.Background(), func(string, models.Event) {})
	assert.ErrorIs(t, err, storage.ErrRedisDisabled)
}
