package handlers

import (
	"realtime-scoring-backend/cache"
	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/service"
	"realtime-scoring-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Polls    *service.PollService
	Votes    *service.VoteService
	Issuer   *identity.Issuer
	Hub      *websocket.Hub
	Bus      mq.EventBus
	DB       *gorm.DB
	Redis    *redis.Client
	Limiter  *cache.UserRateLimiter
	AdminKey string
}

// Register mounts every endpoint on api. Identity is resolved for all of
// them; individual routes decide whether it is required. A nil Limiter
// disables rate limiting.
func Register(api *gin.RouterGroup, d Deps) {
	api.Use(identity.Authenticate(d.Issuer), RateLimitMiddleware(d.Limiter))

	NewHealthController(d.DB, d.Redis, d.Hub).RegisterRoutes(api)
	NewAuthController(d.Issuer).RegisterRoutes(api)
	NewPollController(d.Polls, d.Votes).RegisterRoutes(api)
	NewLiveController(d.Polls, d.Hub, d.Bus).RegisterRoutes(api)
	NewUsageController(d.Polls, d.AdminKey).RegisterRoutes(api)
}
