package handlers

import (
	"crypto/subtle"
	"net/http"

	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/service"

	"github.com/gin-gonic/gin"
)

// UsageController exposes the usage-quota document.
type UsageController struct {
	polls    *service.PollService
	adminKey string
}

func NewUsageController(polls *service.PollService, adminKey string) *UsageController {
	return &UsageController{polls: polls, adminKey: adminKey}
}

func (uc *UsageController) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/me/usage", identity.RequireIdentity(), uc.MyUsage)

	admin := api.Group("/admin", RequireAdminKey(uc.adminKey))
	{
		admin.PUT("/users/:id/tier", uc.SetTier)
	}
}

// MyUsage 获取当前用户的使用额度和权限
func (uc *UsageController) MyUsage(c *gin.Context) {
	caller, _ := identity.FromContext(c)
	view, err := uc.polls.Usage(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type setTierInput struct {
	Tier string `json:"tier" binding:"required"`
}

// SetTier 由计费系统调用，修改用户等级
func (uc *UsageController) SetTier(c *gin.Context) {
	var in setTierInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	usage, err := uc.polls.SetTier(c.Request.Context(), c.Param("id"), in.Tier)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

// RequireAdminKey guards billing endpoints. With no key configured they are
// disabled.
func RequireAdminKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Key")
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "admin key required", Code: "forbidden"})
			return
		}
		c.Next()
	}
}
