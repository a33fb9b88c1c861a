// Package chatclient implements the restaurant chat client: it sends user
// text to the chatbot service, keeps the rendered conversation in an
// append-only log and tracks whether the service is reachable.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/ashureev/caficafe-chat/internal/domain"
	"github.com/ashureev/caficafe-chat/internal/identity"
)

const (
	chatPath   = "/chat"
	healthPath = "/health"

	// maxResponseBytes bounds how much of a reply body is read.
	maxResponseBytes = 1 << 20
	maxDetailLen     = 200
)

// Config holds chat client configuration.
type Config struct {
	BaseURL          string
	UserID           string // generated when empty
	MaxMessageLength int    // rune limit; 0 disables the check
	RequestTimeout   time.Duration
	SendMetadata     bool // include userId and timestamp in requests
	HTTPClient       *http.Client
	Observer         Observer
	Now              func() time.Time
}

// DefaultConfig returns default client configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		MaxMessageLength: 1000,
		RequestTimeout:   30 * time.Second,
		SendMetadata:     true,
	}
}

// Client talks to the chatbot service over HTTP.
type Client struct {
	baseURL          string
	userID           string
	maxMessageLength int
	sendMetadata     bool
	http             *http.Client
	observer         Observer
	now              func() time.Time
	logger           *slog.Logger

	log     *MessageLog
	sending atomic.Bool

	stateMu sync.RWMutex
	state   ConnectionState
}

// New creates a chat client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.MaxMessageLength < 0 {
		return nil, fmt.Errorf("max message length must be >= 0, got %d", cfg.MaxMessageLength)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	observer := cfg.Observer
	if observer == nil {
		observer = ObserverFuncs{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	userID := cfg.UserID
	if userID == "" {
		userID = identity.NewUserID()
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		userID:           userID,
		maxMessageLength: cfg.MaxMessageLength,
		sendMetadata:     cfg.SendMetadata,
		http:             httpClient,
		observer:         observer,
		now:              now,
		logger:           logger.With("component", "chatclient"),
		log:              NewMessageLog(),
	}, nil
}

// Log returns the client's message log.
func (c *Client) Log() *MessageLog {
	return c.log
}

// UserID returns the identifier sent with each message.
func (c *Client) UserID() string {
	return c.userID
}

// BaseURL returns the chatbot origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Busy reports whether a send is in flight.
func (c *Client) Busy() bool {
	return c.sending.Load()
}

// Close releases idle HTTP connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// SendMessage validates text, records it in the log, posts it to the chatbot
// and records the reply. Every failure is also rendered into the log as a
// system message. Only one send may be in flight; overlapping calls fail
// with ErrBusy.
func (c *Client) SendMessage(ctx context.Context, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if err := c.validate(text); err != nil {
		c.appendError(err)
		return domain.Message{}, err
	}

	if !c.sending.CompareAndSwap(false, true) {
		err := &Error{Kind: KindBusy}
		c.appendError(err)
		return domain.Message{}, err
	}
	c.observer.OnBusyChange(true)
	defer func() {
		c.sending.Store(false)
		c.observer.OnBusyChange(false)
	}()

	c.append(domain.NewMessage(domain.SenderUser, text, c.now()))

	reply, err := c.postChat(ctx, text)
	if err != nil {
		c.logger.Warn("Chat request failed", "error", err, "user_id", c.userID)
		c.setConnected(false)
		c.appendError(err)
		return domain.Message{}, err
	}

	c.setConnected(true)
	msg := domain.NewMessage(domain.SenderBot, reply, c.now())
	c.append(msg)
	return msg, nil
}

func (c *Client) validate(text string) error {
	if text == "" {
		return &Error{Kind: KindEmptyInput}
	}
	if c.maxMessageLength > 0 {
		if n := utf8.RuneCountInString(text); n > c.maxMessageLength {
			return &Error{Kind: KindTooLong, Detail: fmt.Sprintf("%d characters, max %d", n, c.maxMessageLength)}
		}
	}
	return nil
}

func (c *Client) postChat(ctx context.Context, text string) (string, error) {
	body := chatRequest{Message: text}
	if c.sendMetadata {
		body.UserID = c.userID
		body.Timestamp = c.now().UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending message", "url", req.URL.String(), "message_length", len(text))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close chat response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: err}
	}

	c.logger.Debug("Chat response received", "status", resp.StatusCode, "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, errorDetail(data))
	}

	parsed, err := decodeChatResponse(data)
	if err != nil {
		return "", &Error{Kind: KindMalformedResponse, Err: err}
	}
	if !parsed.succeeded() {
		return "", &Error{Kind: KindRejected, Detail: parsed.errorText()}
	}
	return parsed.replyText(), nil
}

// CheckHealth probes GET /health. Any 2xx response is healthy; every other
// outcome, including transport failure, is unhealthy. The result is written
// to the connection state.
func (c *Client) CheckHealth(ctx context.Context) bool {
	healthy := c.probeHealth(ctx)
	c.setConnected(healthy)
	return healthy
}

func (c *Client) probeHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		c.logger.Warn("Failed to build health request", "error", err)
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Backend connection failed", "error", err)
		return false
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("Failed to close health response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("Backend responded with error status", "status", resp.StatusCode)
		return false
	}

	var info map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&info); err != nil {
		c.logger.Debug("Health response was not JSON", "error", err)
	} else {
		c.logger.Debug("Backend connection successful", "status", info["status"], "gemini_api", info["gemini_api"])
	}
	return true
}

func (c *Client) setConnected(connected bool) {
	c.stateMu.Lock()
	c.state = ConnectionState{Connected: connected, LastCheckedAt: c.now()}
	state := c.state
	c.stateMu.Unlock()
	c.observer.OnConnectionChange(state)
}

func (c *Client) append(msg domain.Message) {
	c.log.Append(msg)
	c.observer.OnMessage(msg)
}

func (c *Client) appendError(err error) {
	c.append(domain.NewMessage(domain.SenderSystem, DisplayMessage(err), c.now()))
}

// errorDetail pulls a short reason out of an error body for logs and errors.
func errorDetail(body []byte) string {
	var payload struct {
		Error        any    `json:"error"`
		ErrorMessage string `json:"error_message"`
		Detail       any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.ErrorMessage != "":
			return truncate(payload.ErrorMessage)
		case payload.Error != nil:
			return truncate(fmt.Sprint(payload.Error))
		case payload.Detail != nil:
			return truncate(fmt.Sprint(payload.Detail))
		}
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxDetailLen {
		return s
	}
	return string([]rune(s)[:maxDetailLen]) + "..."
}
