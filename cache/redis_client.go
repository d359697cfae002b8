package cache

import "github.com/redis/go-redis/v9"

// RedisClient is what the Redis limiter needs to run its Lua script.
// *redis.Client satisfies it.
type RedisClient interface {
	redis.Scripter
}
