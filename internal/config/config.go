// Package config loads the service configuration from environment
// variables, falling back to development defaults for anything unset or
// unparsable.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RateLimit defines the per-connection token bucket parameters.
type RateLimit struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds every runtime setting of the chat relay.
type Config struct {
	Port           string
	AllowedOrigins []string
	DatabasePath   string
	MaxMessageSize int64
	RateLimit      RateLimit
	Env            string
	LogLevel       string
	LogFile        string
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		Port:           ":8080",
		AllowedOrigins: []string{"http://localhost:8080"},
		DatabasePath:   "./data/chat.db",
		MaxMessageSize: 512,
		RateLimit: RateLimit{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Env:      "development",
		LogLevel: "info",
	}
}

// Load reads configuration from the environment, loading a .env file first
// when one is present. Unset or invalid values keep their defaults.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Default()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitList(origins)
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.DatabasePath = path
	}
	if size := os.Getenv("MAX_MESSAGE_SIZE"); size != "" {
		cfg.MaxMessageSize = parseInt64(size, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseInt(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}
	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	cfg.LogFile = os.Getenv("LOG_FILE")

	return cfg
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseInt64(value string, fallback int64) int64 {
	if parsed, err := strconv.ParseInt(value, 10, 64); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return fallback
}

func parseSeconds(value string, fallback time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
