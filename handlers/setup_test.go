package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realtime-scoring-backend/cache"
	"realtime-scoring-backend/database"
	"realtime-scoring-backend/identity"
	"realtime-scoring-backend/models"
	"realtime-scoring-backend/mq"
	"realtime-scoring-backend/service"
	"realtime-scoring-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testAdminKey = "admin-secret"

type testEnv struct {
	router *gin.Engine
	store  *database.Store
	issuer *identity.Issuer
	bus    *mq.MemoryBus
	hub    *websocket.Hub
}

// SetupTestEnvironment builds the full HTTP stack on an in-memory SQLite
// database with in-process event delivery.
func SetupTestEnvironment(t *testing.T, limiter *cache.UserRateLimiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.NewTestDB(t)
	store := database.NewStore(db)
	issuer := identity.NewIssuer("test-secret")
	bus := mq.NewMemoryBus(16)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(bus)
	go hub.Run(ctx)

	polls := service.NewPollService(store, bus)
	votes := service.NewVoteService(store, bus, issuer)

	router := gin.New()
	Register(router.Group("/api"), Deps{
		Polls:    polls,
		Votes:    votes,
		Issuer:   issuer,
		Hub:      hub,
		Bus:      bus,
		DB:       db,
		Limiter:  limiter,
		AdminKey: testAdminKey,
	})

	return &testEnv{router: router, store: store, issuer: issuer, bus: bus, hub: hub}
}

func (e *testEnv) token(t *testing.T, id models.Identity) string {
	t.Helper()
	token, err := e.issuer.Issue(id, time.Hour)
	require.NoError(t, err)
	return token
}

// do performs a request; token and body are optional.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createPoll creates a two-option poll as creator and returns its id.
func (e *testEnv) createPoll(t *testing.T, creator string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/polls", e.token(t, models.Identity{UserID: creator}), gin.H{
		"question": "Where to eat?",
		"options":  []string{"Tacos", "Ramen"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[service.CreateOutcome](t, w).Poll.ID
}

func fullRatings(a, b int) gin.H {
	return gin.H{"ratings": gin.H{
		"opt_0": gin.H{"crit_0": a},
		"opt_1": gin.H{"crit_0": b},
	}}
}

func (e *testEnv) doAdmin(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", testAdminKey)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
