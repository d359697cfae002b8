package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realtime-scoring-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("secret")

	token, err := issuer.Issue(models.Identity{UserID: "alice"}, time.Hour)
	require.NoError(t, err)

	id, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "alice"}, id)
}

func TestVerify_Rejects(t *testing.T) {
	issuer := NewIssuer("secret")
	token, err := issuer.Issue(models.Identity{UserID: "alice"}, time.Hour)
	require.NoError(t, err)

	_, err = NewIssuer("other").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewIssuer("secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(models.Identity{UserID: "bob"}, time.Hour)
	require.NoError(t, err)
	_, err = issuer.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMintAnonymous(t *testing.T) {
	issuer := NewIssuer("secret")

	id, token, err := issuer.MintAnonymous()
	require.NoError(t, err)
	assert.True(t, id.Anonymous)
	assert.True(t, strings.HasPrefix(id.UserID, "anon_"))

	verified, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, verified)

	other, _, err := issuer.MintAnonymous()
	require.NoError(t, err)
	assert.NotEqual(t, id.UserID, other.UserID)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := NewIssuer("secret")
	token, err := issuer.Issue(models.Identity{UserID: "alice"}, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Authenticate(issuer))
	router.GET("/open", func(c *gin.Context) {
		id, _ := FromContext(c)
		c.String(http.StatusOK, id.UserID)
	})
	router.GET("/closed", RequireIdentity(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{name: "open without token", path: "/open", code: http.StatusOK, body: ""},
		{name: "open with token", path: "/open", header: "Bearer " + token, code: http.StatusOK, body: "alice"},
		{name: "query token", path: "/open?token=" + token, code: http.StatusOK, body: "alice"},
		{name: "bad token", path: "/open", header: "Bearer junk", code: http.StatusUnauthorized},
		{name: "closed without token", path: "/closed", code: http.StatusUnauthorized},
		{name: "closed with token", path: "/closed", header: "Bearer " + token, code: http.StatusNoContent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}
