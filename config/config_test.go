package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8090", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "scoring.db", cfg.DBDSN)
	assert.Equal(t, 10, cfg.VoteRetryBudget)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.True(t, cfg.RedisEnabled)
	assert.False(t, cfg.RateLimitEnabled)
}

func TestFromEnv_MySQLDSNFromParts(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_HOST", "db.local")
	t.Setenv("DB_NAME", "scores")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Contains(t, cfg.DBDSN, "@tcp(db.local:3306)/scores")
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("VOTE_RETRY_BUDGET", "25")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 25, cfg.VoteRetryBudget)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.RedisEnabled)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"JWT_SECRET": ""}},
		{name: "non numeric budget", env: map[string]string{"JWT_SECRET": "s", "VOTE_RETRY_BUDGET": "many"}},
		{name: "zero budget", env: map[string]string{"JWT_SECRET": "s", "VOTE_RETRY_BUDGET": "0"}},
		{name: "bad redis db", env: map[string]string{"JWT_SECRET": "s", "REDIS_DB": "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
