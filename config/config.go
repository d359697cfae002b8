package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 服务配置
type Config struct {
	Port     string
	LogLevel string

	DBDriver   string
	DBDSN      string
	DBLogLevel string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	AdminKey  string

	VoteRetryBudget int

	RateLimitEnabled bool
	GlobalRateLimit  int
	UserRateLimit    int

	CORSOrigins []string
}

// Load reads configuration from the process environment, after merging an
// optional .env file. Values already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          getEnv("SERVER_PORT", "8090"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBDriver:      strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBLogLevel:    getEnv("DB_LOG_LEVEL", "warn"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:16379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminKey:      os.Getenv("ADMIN_KEY"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.VoteRetryBudget, err = getEnvInt("VOTE_RETRY_BUDGET", 10); err != nil {
		return Config{}, err
	}
	if cfg.GlobalRateLimit, err = getEnvInt("GLOBAL_RATE_LIMIT", 100); err != nil {
		return Config{}, err
	}
	if cfg.UserRateLimit, err = getEnvInt("USER_RATE_LIMIT", 10); err != nil {
		return Config{}, err
	}
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "true") == "true"
	cfg.RateLimitEnabled = getEnv("ENABLE_RATE_LIMIT", "false") == "true"

	for _, origin := range strings.Split(getEnv("CORS_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		cfg.DBDSN = defaultDSN(cfg.DBDriver)
	}

	if cfg.VoteRetryBudget < 1 {
		return Config{}, errors.New("VOTE_RETRY_BUDGET must be at least 1")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET required")
	}
	return cfg, nil
}

func defaultDSN(driver string) string {
	switch driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			getEnv("DB_USER", "voteuser"),
			getEnv("DB_PASSWORD", "votepassword"),
			getEnv("DB_HOST", "mysql"),
			getEnv("DB_PORT", "3306"),
			getEnv("DB_NAME", "votingdb"))
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			getEnv("DB_HOST", "postgres"),
			getEnv("DB_USER", "voteuser"),
			getEnv("DB_PASSWORD", "votepassword"),
			getEnv("DB_NAME", "votingdb"),
			getEnv("DB_PORT", "5432"))
	default:
		return "scoring.db"
	}
}

// getEnv 获取环境变量值或使用默认值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
