package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	RateLimitPost    time.Duration
	RateLimitComment time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),
	}

	cfg.JWTTTL = time.Hour
	if minutesStr := os.Getenv("JWT_TTL_MINUTES"); minutesStr != "" {
		minutes, err := strconv.Atoi(minutesStr)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: %w", err)
		}
		cfg.JWTTTL = time.Duration(minutes) * time.Minute
	}

	var err error
	cfg.RateLimitPost, err = time.ParseDuration(getEnv("RATE_LIMIT_POST", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_POST: %w", err)
	}
	cfg.RateLimitComment, err = time.ParseDuration(getEnv("RATE_LIMIT_COMMENT", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_COMMENT: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
