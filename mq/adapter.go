package mq

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventBus carries poll updates from writers to live-result subscribers.
type EventBus interface {
	Publish(ctx context.Context, u PollUpdate) error
	Subscribe() (<-chan PollUpdate, func())
}

// MQAdapter 消息总线适配器，Redis不可用时退回到进程内分发
type MQAdapter struct {
	redis *RedisBus
	local *MemoryBus
}

// NewMQAdapter builds the bus. With a nil client only local delivery is used.
// Otherwise the Redis relay runs until ctx is cancelled.
func NewMQAdapter(ctx context.Context, client *redis.Client) *MQAdapter {
	a := &MQAdapter{local: NewMemoryBus(16)}
	if client != nil {
		a.redis = NewRedisBus(client, a.local)
		go a.redis.Run(ctx)
	} else {
		slog.Info("redis disabled, poll updates are delivered in-process only")
	}
	return a
}

func (a *MQAdapter) Publish(ctx context.Context, u PollUpdate) error {
	if a.redis != nil {
		err := a.redis.Publish(ctx, u)
		if err == nil {
			return nil
		}
		slog.Warn("redis publish failed, delivering locally", "poll_id", u.PollID, "error", err)
	}
	return a.local.Publish(ctx, u)
}

func (a *MQAdapter) Subscribe() (<-chan PollUpdate, func()) {
	return a.local.Subscribe()
}
