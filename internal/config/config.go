// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedOrigins are the browser origins the chatbot answers by default.
var DefaultAllowedOrigins = []string{
	"https://munyanezaarmel.github.io",
	"http://localhost:3000",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
}

// Config holds all chatbot server configuration.
type Config struct {
	Port             string
	GRPCHealthPort   string // empty disables the gRPC health listener
	DBPath           string
	DataDir          string
	AllowedOrigins   []string
	LogLevel         slog.Level
	Gemini           GeminiConfig
	Chat             ChatConfig
	RateLimit        RateLimitConfig
	HealthCacheTTL   time.Duration
	HistoryRetention time.Duration
}

// GeminiConfig controls the model backing the chatbot.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatConfig controls message validation and conversation memory.
type ChatConfig struct {
	MaxMessageLength int
	HistoryLimit     int
}

// RateLimitConfig controls per-user throttling of POST /chat.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8001"),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", "50051"),
		DBPath:         getEnv("DB_PATH", "./data/chat.db"),
		DataDir:        getEnv("RESTAURANT_DATA_DIR", "./data"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", DefaultAllowedOrigins),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		Gemini: GeminiConfig{
			APIKey:  apiKey,
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("MODEL_TIMEOUT", 30*time.Second),
		},
		Chat: ChatConfig{
			MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 1000),
			HistoryLimit:     getEnvInt("HISTORY_LIMIT", 10),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		HealthCacheTTL:   getEnvDuration("HEALTH_CACHE_TTL", 5*time.Minute),
		HistoryRetention: getEnvDuration("HISTORY_RETENTION", 7*24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is missing in environment")
	}
	if c.Gemini.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be > 0")
	}
	if c.Chat.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must be >= 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.HealthCacheTTL <= 0 {
		return fmt.Errorf("HEALTH_CACHE_TTL must be > 0")
	}
	if c.HistoryRetention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION must be > 0")
	}
	return nil
}

// GRPCHealthEnabled reports whether the gRPC health listener should start.
func (c *Config) GRPCHealthEnabled() bool {
	return c.GRPCHealthPort != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
