// Package agent implements the restaurant chatbot: message validation, the
// model-backed responder, conversation history and the /chat endpoint.
package agent

import (
	"time"
)

// FallbackReply is returned when the model cannot produce an answer.
const FallbackReply = "I apologize, but I'm currently unable to process your request.\n" +
	"Please contact us at +1 (555) 123-CAFE or email hello@caficafe.com for assistance!"

// ChatRequest is the body of POST /chat. Both userId and user_id are
// accepted since widget and API clients use different spellings.
type ChatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId,omitempty"`
	UserIDAlt string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ResolvedUserID returns whichever user ID field was set.
func (r ChatRequest) ResolvedUserID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.UserIDAlt
}

// ChatResponse is a successful reply. Response and Message carry the same text.
type ChatResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Response  string `json:"response"`
	Message   string `json:"message"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is a failed reply.
type ErrorResponse struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Error        string `json:"error"`
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Text     string
	Fallback bool // the model failed and FallbackReply was used
	At       time.Time
}

// Config holds chatbot configuration.
type Config struct {
	MaxMessageLength int
	HistoryLimit     int
	ModelTimeout     time.Duration
	HealthCacheTTL   time.Duration
}

// DefaultConfig returns default chatbot configuration.
func DefaultConfig() Config {
	return Config{
		MaxMessageLength: 1000,
		HistoryLimit:     10,
		ModelTimeout:     30 * time.Second,
		HealthCacheTTL:   5 * time.Minute,
	}
}
