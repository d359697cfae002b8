package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-scoring-backend/cache"
	"realtime-scoring-backend/config"
	"realtime-scoring-backend/database"
	"realtime-scoring-backend/handlers"
	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/routes"
	"realtime-scoring-backend/service"
	"realtime-scoring-backend/websocket"

	"github.com/redis/go-redis/v9"
)

const (
	lockExpiry      = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化数据库连接
	db, err := database.Open(cfg)
	if err != nil {
		slog.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	// Redis是可选的，不可用时退化为单实例模式
	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = cache.NewRedisClient(ctx, cfg)
		if err != nil {
			slog.Warn("redis unavailable, running single-instance", "error", err)
			rdb = nil
		} else {
			defer cache.CloseRedis(rdb)
		}
	}

	bus := mq.NewMQAdapter(ctx, rdb)
	hub := websocket.NewHub(bus)
	go hub.Run(ctx)

	store := database.NewStore(db)
	issuer := identity.NewIssuer(cfg.JWTSecret)

	pollOpts := []service.PollServiceOption{service.WithCreationRetryBudget(cfg.VoteRetryBudget)}
	if rdb != nil {
		pollOpts = append(pollOpts, service.WithCreationLock(cache.NewLockService(rdb, lockExpiry)))
	}
	polls := service.NewPollService(store, bus, pollOpts...)
	votes := service.NewVoteService(store, bus, issuer, service.WithRetryBudget(cfg.VoteRetryBudget))

	router := routes.SetupRouter(handlers.Deps{
		Polls:    polls,
		Votes:    votes,
		Issuer:   issuer,
		Hub:      hub,
		Bus:      bus,
		DB:       db,
		Redis:    rdb,
		Limiter:  newLimiter(cfg, rdb),
		AdminKey: cfg.AdminKey,
	}, cfg.CORSOrigins)

	srv := routes.StartServer(router, cfg.Port)

	// 等待中断信号以优雅地关闭服务器
	<-ctx.Done()
	slog.Info("shutting down")

	if err := srv.Stop(shutdownTimeout); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// newLimiter 初始化限流器：全局额度加上每个用户的额度
func newLimiter(cfg config.Config, rdb *redis.Client) *cache.UserRateLimiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	if rdb != nil {
		return cache.NewUserRateLimiter(
			cache.NewTokenBucketRateLimiter(rdb, "global", cfg.GlobalRateLimit, cfg.GlobalRateLimit*2),
			cache.NewTokenBucketRateLimiter(rdb, "user", cfg.UserRateLimit, cfg.UserRateLimit*2),
		)
	}
	return cache.NewUserRateLimiter(
		cache.NewLocalRateLimiter(cfg.GlobalRateLimit, cfg.GlobalRateLimit*2),
		cache.NewLocalRateLimiter(cfg.UserRateLimit, cfg.UserRateLimit*2),
	)
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
