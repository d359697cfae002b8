package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

// DistributedLockService 分布式锁服务
type DistributedLockService struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewLockService builds a redsync lock service on an existing client.
func NewLockService(client *redis.Client, expiry time.Duration) *DistributedLockService {
	pool := goredis.NewPool(client)
	return &DistributedLockService{rs: redsync.New(pool), expiry: expiry}
}

// WithLock runs action while holding the named lock. The lock expires on its
// own if the holder dies, so action must finish well within the expiry.
func (s *DistributedLockService) WithLock(ctx context.Context, name string, action func() error) error {
	mutex := s.rs.NewMutex(lockPrefix+name,
		redsync.WithExpiry(s.expiry),
		redsync.WithTries(20),
		redsync.WithRetryDelay(50*time.Millisecond),
		redsync.WithDriftFactor(0.01),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %v", ErrLockNotAcquired, name, err)
	}

	defer func() {
		// 使用独立的上下文解锁，避免请求取消导致锁残留
		unlockCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := mutex.UnlockContext(unlockCtx); err != nil {
			slog.Warn("release lock failed", "lock", name, "error", err)
		}
	}()

	return action()
}
