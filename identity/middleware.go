package identity

import (
	"net/http"
	"strings"

	"realtime-scoring-backend/models"

	"github.com/gin-gonic/gin"
)

const contextKey = "identity"

// Authenticate reads an optional bearer token. Requests without one pass
// through with no identity; requests with a bad one are rejected.
func Authenticate(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		id, err := issuer.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(contextKey, id)
		c.Next()
	}
}

// RequireIdentity rejects requests that Authenticate left without identity.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := FromContext(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}
		c.Next()
	}
}

// FromContext returns the identity Authenticate attached to the request.
func FromContext(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	// Browsers cannot set headers on WebSocket or EventSource requests.
	return c.Query("token")
}
