package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/caficafe-chat/internal/domain"
	"github.com/ashureev/caficafe-chat/internal/identity"
	"github.com/ashureev/caficafe-chat/internal/store"
	"golang.org/x/sync/singleflight"
)

// Service runs chat turns: it loads recent history, asks the responder for a
// reply and stores both sides of the exchange.
type Service struct {
	responder Responder
	repo      store.Repository
	prompt    string
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	healthGroup     singleflight.Group
	healthMu        sync.RWMutex
	healthy         bool
	healthCheckedAt time.Time
}

// NewService creates a chat service. prompt is the system instruction sent
// with every request.
func NewService(responder Responder, repo store.Repository, prompt string, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		responder: responder,
		repo:      repo,
		prompt:    prompt,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// Chat answers message for userID. message must already be validated.
// A responder failure is not an error: the caller gets FallbackReply with
// Reply.Fallback set. Storage failures are returned.
func (s *Service) Chat(ctx context.Context, userID, message string) (Reply, error) {
	var history []domain.StoredMessage
	// Anonymous callers share one ID, so their turns are not replayed.
	if userID != identity.AnonymousUserID {
		var err error
		history, err = s.repo.RecentMessages(ctx, userID, s.cfg.HistoryLimit)
		if err != nil {
			s.logger.Warn("Failed to load conversation history", "user_id", userID, "error", err)
			history = nil
		}
	}

	userMsg := &domain.StoredMessage{UserID: userID, Sender: domain.SenderUser, Text: message, CreatedAt: s.now()}
	if err := s.repo.AppendMessage(ctx, userMsg); err != nil {
		return Reply{}, fmt.Errorf("store user message: %w", err)
	}

	reply := Reply{}
	text, genErr := s.generate(ctx, history, message)
	if genErr != nil {
		s.logger.Error("Model request failed, using fallback reply", "user_id", userID, "error", genErr)
		reply.Text = FallbackReply
		reply.Fallback = true
	} else {
		reply.Text = text
	}
	// A caller hanging up says nothing about the model.
	if genErr == nil || ctx.Err() == nil {
		s.recordModelResult(genErr == nil)
	}

	// The user turn is already stored; keep the pair complete even if the
	// caller has gone.
	reply.At = s.now()
	botMsg := &domain.StoredMessage{UserID: userID, Sender: domain.SenderBot, Text: reply.Text, CreatedAt: reply.At}
	if err := s.repo.AppendMessage(context.WithoutCancel(ctx), botMsg); err != nil {
		return Reply{}, fmt.Errorf("store reply: %w", err)
	}

	s.logger.Info("Chat turn completed",
		"user_id", userID,
		"history_len", len(history),
		"reply_length", len(reply.Text),
		"fallback", reply.Fallback,
	)
	return reply, nil
}

func (s *Service) generate(ctx context.Context, history []domain.StoredMessage, message string) (string, error) {
	if s.cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ModelTimeout)
		defer cancel()
	}
	text, err := s.responder.Generate(ctx, s.prompt, history, message)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmptyModelResponse
	}
	return text, nil
}

// ModelHealthy reports whether the model answered recently. Results are
// cached for HealthCacheTTL; concurrent callers share one validation call.
func (s *Service) ModelHealthy(ctx context.Context) bool {
	s.healthMu.RLock()
	healthy, checkedAt := s.healthy, s.healthCheckedAt
	s.healthMu.RUnlock()
	if !checkedAt.IsZero() && s.now().Sub(checkedAt) < s.cfg.HealthCacheTTL {
		return healthy
	}

	v, _, _ := s.healthGroup.Do("validate", func() (any, error) {
		vctx := context.WithoutCancel(ctx)
		if s.cfg.ModelTimeout > 0 {
			var cancel context.CancelFunc
			vctx, cancel = context.WithTimeout(vctx, s.cfg.ModelTimeout)
			defer cancel()
		}
		err := s.responder.Validate(vctx)
		if err != nil {
			s.logger.Warn("Model validation failed", "error", err)
		}
		s.recordModelResult(err == nil)
		return err == nil, nil
	})
	return v.(bool)
}

func (s *Service) recordModelResult(ok bool) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.healthy = ok
	s.healthCheckedAt = s.now()
}
