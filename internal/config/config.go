// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable of the server process. Unset variables fall
// back to local-development defaults; only the moderation API key has no
// default and is required.
type Config struct {
	ListenAddr     string
	MaxConnections int
	WriteTimeout   time.Duration

	PostgresDSN   string
	MigrationsDir string

	RedisAddr     string
	RedisPassword string

	NATSURL  string
	NATSName string

	ModerationURL    string
	ModerationAPIKey string
}

// Load reads configuration from the process environment. A .env file in the
// working directory is merged in first when present.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: load .env: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:     envString("LISTEN_ADDR", ":8080"),
		MaxConnections: envInt("MAX_CONNECTIONS", 100000),
		WriteTimeout:   envDuration("WRITE_TIMEOUT", 10*time.Second),

		PostgresDSN:   envString("POSTGRES_DSN", "postgres://localhost:5432/debate?sslmode=disable"),
		MigrationsDir: envString("MIGRATIONS_DIR", "migrations"),

		RedisAddr:     envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: envString("REDIS_PASSWORD", ""),

		NATSURL:  envString("NATS_URL", ""),
		NATSName: envString("NATS_NAME", "debate-server"),

		ModerationURL:    envString("MODERATION_URL", "https://commentanalyzer.googleapis.com/v1alpha1/comments:analyze"),
		ModerationAPIKey: os.Getenv("MODERATION_API_KEY"),
	}

	if cfg.ModerationAPIKey == "" {
		return Config{}, fmt.Errorf("config: MODERATION_API_KEY is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
