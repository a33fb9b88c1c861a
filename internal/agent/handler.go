package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/caficafe-chat/internal/api"
	"github.com/ashureev/caficafe-chat/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// Handler serves the chat endpoint.
type Handler struct {
	service     *Service
	rateLimiter *RateLimiter
	maxBodySize int64
	logger      *slog.Logger
}

// NewHandler creates a chat handler. limiter may be nil to disable rate limiting.
func NewHandler(service *Service, limiter *RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:     service,
		rateLimiter: limiter,
		maxBodySize: defaultMaxRequestBodySize,
		logger:      logger,
	}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
}

// Close releases handler resources.
func (h *Handler) Close() {
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

// HandleChat handles POST /chat requests.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := identity.SanitizeUserID(req.ResolvedUserID())
	limitKey := userID
	if userID == identity.AnonymousUserID {
		limitKey = "ip:" + identity.IPFromRequest(r)
	}

	// Rejected messages do not count against the caller's quota.
	message, err := ValidateMessage(req.Message, h.service.Config().MaxMessageLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.rateLimiter != nil && !h.rateLimiter.Allow(limitKey) {
		h.logger.Warn("Chat rate limit exceeded", "user_id", userID, "key", limitKey)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	h.logger.Info("Chat request",
		"user_id", userID,
		"request_id", reqID,
		"message_length", len(message),
	)

	reply, err := h.service.Chat(r.Context(), userID, message)
	if err != nil {
		h.logger.Error("Chat request failed", "user_id", userID, "request_id", reqID, "error", err)
		api.JSON(w, http.StatusInternalServerError, ErrorResponse{
			Success:      false,
			Status:       "error",
			ErrorMessage: "Internal server error",
			Error:        "An unexpected error occurred. Please try again later.",
		})
		return
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Success:   true,
		Status:    "success",
		Response:  reply.Text,
		Message:   reply.Text,
		UserID:    userID,
		Timestamp: reply.At.UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	api.JSON(w, status, ErrorResponse{
		Success:      false,
		Status:       "error",
		ErrorMessage: message,
		Error:        message,
	})
}
