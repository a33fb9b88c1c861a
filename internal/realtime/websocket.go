package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/caficafe-chat/internal/agent"
	"github.com/ashureev/caficafe-chat/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// Chatter answers one validated chat message.
type Chatter interface {
	Chat(ctx context.Context, userID, message string) (agent.Reply, error)
}

// wsMessage is the frame exchanged in both directions.
type wsMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Handler serves GET /ws/chat.
type Handler struct {
	chatter        Chatter
	sm             *SessionManager
	limiter        *agent.RateLimiter
	maxLen         int
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler creates a WebSocket chat handler. limiter may be nil.
func NewHandler(chatter Chatter, sm *SessionManager, limiter *agent.RateLimiter, maxLen int, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chatter:        chatter,
		sm:             sm,
		limiter:        limiter,
		maxLen:         maxLen,
		originPatterns: originPatterns(allowedOrigins),
		logger:         logger,
	}
}

// originPatterns converts allowed origins to the host patterns the websocket
// library matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// sessionIDFromQuery gives each socket without a session_id its own session
// so tabs that omit it do not replace one another.
func sessionIDFromQuery(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return identity.NewSessionID()
	}
	return identity.SanitizeSessionID(raw)
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.SanitizeUserID(r.URL.Query().Get("user_id"))
	sessionID := sessionIDFromQuery(r.URL.Query().Get("session_id"))
	h.logger.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	limitKey := userID
	if userID == identity.AnonymousUserID {
		limitKey = "ip:" + identity.IPFromRequest(r)
	}

	ctx := r.Context()
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed", "user_id", userID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		resp := h.dispatch(ctx, userID, limitKey, msg)
		if err := h.write(ctx, ws, resp); err != nil {
			h.logger.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, userID, limitKey string, msg wsMessage) wsMessage {
	switch msg.Type {
	case "ping":
		return wsMessage{Type: "pong"}
	case "message":
	default:
		return wsMessage{Type: "error", Content: "unknown message type"}
	}

	text, err := agent.ValidateMessage(msg.Content, h.maxLen)
	if err != nil {
		return wsMessage{Type: "error", Content: err.Error()}
	}

	if h.limiter != nil && !h.limiter.Allow(limitKey) {
		return wsMessage{Type: "error", Content: "rate limit exceeded"}
	}

	reply, err := h.chatter.Chat(ctx, userID, text)
	if err != nil {
		h.logger.Error("WebSocket chat failed", "error", err, "user_id", userID)
		return wsMessage{Type: "error", Content: "Internal server error"}
	}
	return wsMessage{Type: "reply", Content: reply.Text, Timestamp: reply.At.UTC().Format(time.RFC3339)}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, msg wsMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, msg)
}
