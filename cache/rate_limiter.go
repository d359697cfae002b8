package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter 限流器接口
type RateLimiter interface {
	// Allow 判断key对应的请求是否允许通过
	Allow(ctx context.Context, key string) (bool, error)
}

// 令牌桶算法的Lua脚本，时间单位为毫秒
var tokenBucketScript = redis.NewScript(`
local tokens_key = KEYS[1] .. ":tokens"
local timestamp_key = KEYS[1] .. ":ts"
local now = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl = math.ceil(burst / rate) + 1

local tokens = tonumber(redis.call("get", tokens_key) or burst)
local last_update = tonumber(redis.call("get", timestamp_key) or now)

local elapsed = math.max(0, now - last_update) / 1000
tokens = math.min(burst, tokens + elapsed * rate)

if tokens < 1 then
	return 0
end

redis.call("setex", tokens_key, ttl, tokens - 1)
redis.call("setex", timestamp_key, ttl, now)
return 1
`)

// TokenBucketRateLimiter 基于Redis的令牌桶限流器，多实例共享额度
type TokenBucketRateLimiter struct {
	client RedisClient
	prefix string
	rate   int
	burst  int
	now    func() time.Time
}

// NewTokenBucketRateLimiter 创建新的令牌桶限流器
func NewTokenBucketRateLimiter(client RedisClient, prefix string, rate, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		client: client,
		prefix: fmt.Sprintf("rate_limit:%s", prefix),
		rate:   rate,
		burst:  burst,
		now:    time.Now,
	}
}

func (l *TokenBucketRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.client == nil {
		return false, ErrRedisNotAvailable
	}

	result, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.prefix + ":" + key},
		l.now().UnixMilli(), l.rate, l.burst,
	).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// localIdleTTL is how long an unused per-key bucket is kept. A bucket idle
// that long has refilled completely, so dropping it changes nothing.
const localIdleTTL = 10 * time.Minute

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalRateLimiter keeps one in-process token bucket per key. It is used
// when Redis is not configured. Idle buckets are swept periodically.
type LocalRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	limiters  map[string]*localEntry
	now       func() time.Time
}

func NewLocalRateLimiter(perSecond, burst int) *LocalRateLimiter {
	return &LocalRateLimiter{
		limit:     rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   localIdleTTL,
		lastSweep: time.Now(),
		limiters:  make(map[string]*localEntry),
		now:       time.Now,
	}
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()
	return entry.limiter.AllowN(now, 1), nil
}

// sweep 清理长时间未使用的限流桶，调用方持有锁
func (l *LocalRateLimiter) sweep(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// UserRateLimiter 先检查全局限流，再检查用户级别限流
type UserRateLimiter struct {
	global RateLimiter
	user   RateLimiter
}

func NewUserRateLimiter(global, user RateLimiter) *UserRateLimiter {
	return &UserRateLimiter{global: global, user: user}
}

// AllowUser checks the global bucket and, when userKey is set, the caller's
// own bucket.
func (l *UserRateLimiter) AllowUser(ctx context.Context, userKey string) (bool, error) {
	allowed, err := l.global.Allow(ctx, "global")
	if err != nil || !allowed {
		return false, err
	}
	if userKey == "" {
		return true, nil
	}
	return l.user.Allow(ctx, "user:"+userKey)
}
