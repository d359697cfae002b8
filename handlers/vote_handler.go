package handlers

import (
	"net/http"

	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/models"

	"github.com/gin-gonic/gin"
)

// SubmitVoteInput is the body of a vote submission.
type SubmitVoteInput struct {
	Ratings models.Ratings `json:"ratings" binding:"required"`
}

// SubmitVote 提交或替换当前用户的投票
// @Summary 提交投票
// @Description 没有身份的调用者会获得一个匿名身份，响应中的token用于后续请求
// @Tags polls
// @Accept json
// @Produce json
// @Param id path string true "投票ID"
// @Param vote body SubmitVoteInput true "评分"
// @Success 200 {object} service.VoteReceipt
// @Failure 400 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/polls/{id}/vote [post]
func (pc *PollController) SubmitVote(c *gin.Context) {
	var in SubmitVoteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller, _ := identity.FromContext(c)
	receipt, err := pc.votes.SubmitVote(c.Request.Context(), c.Param("id"), caller, in.Ratings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}
