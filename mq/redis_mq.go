package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// PollUpdatesChannel is the Redis Pub/Sub channel shared by all instances.
const PollUpdatesChannel = "poll_updates"

// RedisBus publishes poll updates over Redis Pub/Sub so every instance can
// notify its own live subscribers.
type RedisBus struct {
	client *redis.Client
	local  *MemoryBus
}

func NewRedisBus(client *redis.Client, local *MemoryBus) *RedisBus {
	return &RedisBus{client: client, local: local}
}

func (r *RedisBus) Publish(ctx context.Context, u PollUpdate) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal poll update: %w", err)
	}
	if err := r.client.Publish(ctx, PollUpdatesChannel, data).Err(); err != nil {
		return fmt.Errorf("publish poll update: %w", err)
	}
	return nil
}

func (r *RedisBus) Subscribe() (<-chan PollUpdate, func()) {
	return r.local.Subscribe()
}

// Run relays messages from Redis to local subscribers until ctx is done.
func (r *RedisBus) Run(ctx context.Context) {
	pubsub := r.client.Subscribe(ctx, PollUpdatesChannel)
	defer pubsub.Close()

	slog.Info("poll update relay started", "channel", PollUpdatesChannel)
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.Info("poll update relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var u PollUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &u); err != nil {
				slog.Warn("drop malformed poll update", "error", err)
				continue
			}
			r.local.deliver(u)
		}
	}
}
