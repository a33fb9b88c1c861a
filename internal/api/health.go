package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Version is the service version reported by GET /.
const Version = "1.0.0"

// ServiceName is reported by GET /health.
const ServiceName = "restaurant-chatbot"

// ModelChecker reports whether the language model is reachable.
type ModelChecker interface {
	ModelHealthy(ctx context.Context) bool
}

// Pinger reports whether the conversation store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves service info, health and CORS probe endpoints.
type HealthHandler struct {
	checker        ModelChecker
	db             Pinger
	allowedOrigins []string
	logger         *slog.Logger
	now            func() time.Time
}

// NewHealthHandler creates a health handler.
// db may be nil.
func NewHealthHandler(checker ModelChecker, db Pinger, allowedOrigins []string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		checker:        checker,
		db:             db,
		allowedOrigins: allowedOrigins,
		logger:         logger,
		now:            time.Now,
	}
}

// RegisterRoutes registers /, /health and /test-cors.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/test-cors", h.TestCORS)
}

// Root describes the service.
func (h *HealthHandler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Restaurant Chatbot API is running!",
		"version":      Version,
		"status":       "healthy",
		"cors_origins": h.allowedOrigins,
		"endpoints": map[string]string{
			"chat":   "/chat (POST)",
			"health": "/health (GET)",
			"ws":     "/ws/chat (GET)",
			"widget": "/widget/ (GET)",
		},
	})
}

// Health always answers 200; gemini_api reports the cached model check and
// database the result of a store ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	modelStatus := "disconnected"
	if h.checker != nil && h.checker.ModelHealthy(r.Context()) {
		modelStatus = "connected"
	}
	dbStatus := "disconnected"
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			h.logger.Warn("Database ping failed", "error", err)
		} else {
			dbStatus = "connected"
		}
	}
	h.logger.Debug("Health check requested", "gemini_api", modelStatus, "database", dbStatus)

	JSON(w, http.StatusOK, map[string]string{
		"status":     "healthy",
		"service":    ServiceName,
		"gemini_api": modelStatus,
		"database":   dbStatus,
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	})
}

// TestCORS echoes the allowed origins so browser clients can verify CORS.
func (h *HealthHandler) TestCORS(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":         "CORS test successful",
		"timestamp":       h.now().UTC().Format(time.RFC3339),
		"allowed_origins": h.allowedOrigins,
	})
}
