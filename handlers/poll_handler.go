package handlers

import (
	"net/http"

	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/models"
	"realtime-scoring-backend/service"

	"github.com/gin-gonic/gin"
)

// PollController 处理投票相关API请求
type PollController struct {
	polls *service.PollService
	votes *service.VoteService
}

// NewPollController 创建投票控制器
func NewPollController(polls *service.PollService, votes *service.VoteService) *PollController {
	return &PollController{polls: polls, votes: votes}
}

// RegisterRoutes 注册API路由
func (pc *PollController) RegisterRoutes(api *gin.RouterGroup) {
	polls := api.Group("/polls")
	{
		polls.POST("", identity.RequireIdentity(), pc.CreatePoll)
		polls.GET("", identity.RequireIdentity(), pc.ListMyPolls)
		polls.GET("/:id", pc.GetPoll)
		polls.DELETE("/:id", identity.RequireIdentity(), pc.DeletePoll)
		polls.POST("/:id/vote", pc.SubmitVote)
		polls.GET("/:id/results", pc.GetResults)
	}
}

// CreatePoll 创建投票
// @Summary 创建新投票
// @Description 免费用户每个UTC日只能创建一个投票，超出时返回402并提示升级
// @Tags polls
// @Accept json
// @Produce json
// @Param poll body models.CreatePollInput true "投票定义"
// @Success 201 {object} service.CreateOutcome
// @Failure 402 {object} service.CreateOutcome
// @Router /api/polls [post]
func (pc *PollController) CreatePoll(c *gin.Context) {
	var in models.CreatePollInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, _ := identity.FromContext(c)
	outcome, err := pc.polls.CreatePoll(c.Request.Context(), caller, in)
	if err != nil {
		respondError(c, err)
		return
	}
	if !outcome.Allowed {
		c.JSON(http.StatusPaymentRequired, outcome)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// ListMyPolls 获取当前用户创建的未删除投票
func (pc *PollController) ListMyPolls(c *gin.Context) {
	caller, _ := identity.FromContext(c)
	polls, err := pc.polls.ListMyPolls(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"polls": polls})
}

// GetPoll 获取投票详情
// @Summary 获取投票详情
// @Tags polls
// @Produce json
// @Param id path string true "投票ID"
// @Success 200 {object} models.Poll
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /api/polls/{id} [get]
func (pc *PollController) GetPoll(c *gin.Context) {
	poll, err := pc.polls.GetPoll(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// DeletePoll 软删除投票，仅创建者可操作
func (pc *PollController) DeletePoll(c *gin.Context) {
	caller, _ := identity.FromContext(c)
	if err := pc.polls.DeletePoll(c.Request.Context(), caller, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetResults 获取投票的计分结果
func (pc *PollController) GetResults(c *gin.Context) {
	view, err := pc.polls.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
