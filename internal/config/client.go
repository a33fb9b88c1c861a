package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// LocalBaseURL is the chatbot origin used during development.
	LocalBaseURL = "http://localhost:8001"
	// DeployedBaseURL is the hosted chatbot origin.
	DeployedBaseURL = "https://caficafe-1.onrender.com"
)

// ClientConfig holds terminal chat client configuration.
type ClientConfig struct {
	BaseURL          string
	UserID           string // empty means generate one per run
	MaxMessageLength int    // 0 means unbounded
	MonitorInterval  time.Duration
	RequestTimeout   time.Duration
	SendMetadata     bool
}

// LoadClient reads chat client configuration from environment variables.
// CHAT_API_BASE_URL wins; otherwise APP_ENV selects the deployed or local origin.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{
		BaseURL:          getEnv("CHAT_API_BASE_URL", ""),
		UserID:           getEnv("CHAT_USER_ID", ""),
		MaxMessageLength: getEnvInt("CHAT_MAX_MESSAGE_LENGTH", 1000),
		MonitorInterval:  getEnvDuration("CHAT_MONITOR_INTERVAL", 30*time.Second),
		RequestTimeout:   getEnvDuration("CHAT_REQUEST_TIMEOUT", 30*time.Second),
		SendMetadata:     getEnvBool("CHAT_SEND_METADATA", true),
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURLForEnv(getEnv("APP_ENV", "development"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return cfg, nil
}

// BaseURLForEnv maps an environment name to the chatbot origin.
func BaseURLForEnv(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return DeployedBaseURL
	default:
		return LocalBaseURL
	}
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("CHAT_API_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("CHAT_API_BASE_URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.MaxMessageLength < 0 {
		return fmt.Errorf("CHAT_MAX_MESSAGE_LENGTH must be >= 0")
	}
	if c.MonitorInterval <= 0 {
		return fmt.Errorf("CHAT_MONITOR_INTERVAL must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CHAT_REQUEST_TIMEOUT must be > 0")
	}
	return nil
}
