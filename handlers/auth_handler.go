package handlers

import (
	"net/http"

	"realtime-scoring-backend/identity"

	"github.com/gin-gonic/gin"
)

// AuthController mints ephemeral identities.
type AuthController struct {
	issuer *identity.Issuer
}

func NewAuthController(issuer *identity.Issuer) *AuthController {
	return &AuthController{issuer: issuer}
}

func (ac *AuthController) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/auth/anonymous", ac.Anonymous)
}

// Anonymous 创建匿名身份并返回token
func (ac *AuthController) Anonymous(c *gin.Context) {
	id, token, err := ac.issuer.MintAnonymous()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"identity": id, "token": token})
}
