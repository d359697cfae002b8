package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"realtime-scoring-backend/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient 初始化Redis连接并测试连通性
func NewRedisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 3 * time.Second,
		ReadTimeout: 3 * time.Second,
		PoolSize:    10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisNotAvailable, err)
	}

	slog.Info("redis connected", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return client, nil
}

// CloseRedis 关闭Redis连接
func CloseRedis(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		slog.Error("close redis failed", "error", err)
		return
	}
	slog.Info("redis connection closed")
}
