package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string
	SocketURL      string
	RequestTimeout time.Duration
	TypingTTL      time.Duration
	OutboxSize     int
	PageSize       int
	TokenCachePath string
}

// Load reads configuration from the environment, with .env as a
// convenience overlay for development.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		fmt.Println("godotenv: no .env file loaded")
	}

	return Config{
		APIBaseURL:     getEnv("RIPPLE_API_URL", "http://localhost:8080/api"),
		SocketURL:      getEnv("RIPPLE_SOCKET_URL", "ws://localhost:8080/socket"),
		RequestTimeout: getDuration("RIPPLE_REQUEST_TIMEOUT", 15*time.Second),
		TypingTTL:      getDuration("RIPPLE_TYPING_TTL", 6*time.Second),
		OutboxSize:     getInt("RIPPLE_OUTBOX_SIZE", 64),
		PageSize:       getInt("RIPPLE_PAGE_SIZE", 30),
		TokenCachePath: getEnv("RIPPLE_TOKEN_CACHE", ".ripple-push-token"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
