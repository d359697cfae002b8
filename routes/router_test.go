package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"realtime-scoring-backend/database"
	"realtime-scoring-backend/handlers"
	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/service"
	"realtime-scoring-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newDeps(t *testing.T) handlers.Deps {
	db := database.NewTestDB(t)
	store := database.NewStore(db)
	bus := mq.NewMemoryBus(8)
	issuer := identity.NewIssuer("router-secret")
	return handlers.Deps{
		Polls:  service.NewPollService(store, bus),
		Votes:  service.NewVoteService(store, bus, issuer),
		Issuer: issuer,
		Hub:    websocket.NewHub(bus),
		Bus:    bus,
		DB:     db,
	}
}

func TestSetupRouter_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{name: "wildcard echoes origin", origins: []string{"*"}, origin: "http://app.example", allowed: true},
		{name: "listed origin", origins: []string{"http://app.example"}, origin: "http://app.example", allowed: true},
		{name: "unlisted origin", origins: []string{"http://app.example"}, origin: "http://evil.example", allowed: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := SetupRouter(newDeps(t), tc.origins)

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if tc.allowed {
				assert.Equal(t, http.StatusOK, w.Code)
				assert.Equal(t, tc.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Equal(t, http.StatusForbidden, w.Code)
			}
		})
	}
}
