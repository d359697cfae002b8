package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"realtime-scoring-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SystemInfo contains basic system metrics and information
type SystemInfo struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	CurrentTime  time.Time `json:"current_time"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	DBStatus     string    `json:"db_status"`
	RedisStatus  string    `json:"redis_status"`
	LiveClients  int       `json:"live_clients"`
}

var (
	startTime = time.Now()
	version   = "0.2.0" // 应用版本，可通过构建参数注入
)

type HealthController struct {
	db    *gorm.DB
	redis *redis.Client
	hub   *websocket.Hub
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, hub *websocket.Hub) *HealthController {
	return &HealthController{db: db, redis: rdb, hub: hub}
}

func (hc *HealthController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", hc.HealthCheck)
	api.GET("/status", hc.SystemStatus)
}

// HealthCheck 提供基本健康检查端点
func (hc *HealthController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// SystemStatus 提供详细的系统状态信息
func (hc *HealthController) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	info := SystemInfo{
		Status:       "ok",
		Version:      version,
		Uptime:       time.Since(startTime).Round(time.Second).String(),
		StartTime:    startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		DBStatus:     "ok",
		RedisStatus:  "disabled",
	}

	if sqlDB, err := hc.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		info.DBStatus = "error"
		info.Status = "degraded"
	}
	if hc.redis != nil {
		info.RedisStatus = "ok"
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			info.RedisStatus = "error"
			info.Status = "degraded"
		}
	}
	if hc.hub != nil {
		info.LiveClients = hc.hub.ClientCount()
	}

	status := http.StatusOK
	if info.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, info)
}
