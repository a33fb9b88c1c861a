package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/caficafe-chat/internal/domain"
	"github.com/ashureev/caficafe-chat/internal/identity"
	"github.com/ashureev/caficafe-chat/internal/store"
)

type fakeResponder struct {
	mu          sync.Mutex
	reply       string
	err         error
	validateErr error
	validations atomic.Int32
	gotSystem   string
	gotHistory  []domain.StoredMessage
	gotMessage  string
}

func (f *fakeResponder) Generate(_ context.Context, system string, history []domain.StoredMessage, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotSystem = system
	f.gotHistory = history
	f.gotMessage = message
	return f.reply, f.err
}

func (f *fakeResponder) Validate(context.Context) error {
	f.validations.Add(1)
	return f.validateErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRepo(t *testing.T) *store.SQLiteStore {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestServiceChatStoresTurnAndUsesHistory(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	responder := &fakeResponder{reply: "  We open at 7am.  "}
	cfg := DefaultConfig()
	cfg.HistoryLimit = 2
	svc := NewService(responder, repo, "SYSTEM PROMPT", cfg, quietLogger())
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		if _, err := svc.Chat(ctx, "user_abc", text); err != nil {
			t.Fatalf("Chat failed: %v", err)
		}
	}

	reply, err := svc.Chat(ctx, "user_abc", "When do you open?")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply.Text != "We open at 7am." || reply.Fallback {
		t.Errorf("unexpected reply: %+v", reply)
	}

	responder.mu.Lock()
	defer responder.mu.Unlock()
	if responder.gotSystem != "SYSTEM PROMPT" || responder.gotMessage != "When do you open?" {
		t.Errorf("unexpected responder input: %q / %q", responder.gotSystem, responder.gotMessage)
	}
	if len(responder.gotHistory) != 2 {
		t.Fatalf("history len = %d, want 2", len(responder.gotHistory))
	}
	if responder.gotHistory[0].Text != "second" || responder.gotHistory[1].Sender != domain.SenderBot {
		t.Errorf("unexpected history: %+v", responder.gotHistory)
	}

	n, err := repo.CountMessages(ctx, "user_abc")
	if err != nil || n != 6 {
		t.Errorf("stored %d messages (%v), want 6", n, err)
	}
}

func TestServiceChatFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder *fakeResponder
	}{
		{"model error", &fakeResponder{err: errors.New("quota exceeded")}},
		{"blank reply", &fakeResponder{reply: " \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newTestRepo(t)
			svc := NewService(tt.responder, repo, "", DefaultConfig(), quietLogger())

			reply, err := svc.Chat(context.Background(), "user_x", "Hello")
			if err != nil {
				t.Fatalf("Chat failed: %v", err)
			}
			if reply.Text != FallbackReply || !reply.Fallback {
				t.Errorf("unexpected reply: %+v", reply)
			}

			msgs, err := repo.RecentMessages(context.Background(), "user_x", 10)
			if err != nil || len(msgs) != 2 || msgs[1].Text != FallbackReply {
				t.Errorf("fallback not stored: %+v (%v)", msgs, err)
			}
		})
	}
}

func TestServiceChatSkipsHistoryForAnonymous(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	responder := &fakeResponder{reply: "ok"}
	svc := NewService(responder, repo, "", DefaultConfig(), quietLogger())

	_, _ = svc.Chat(context.Background(), identity.AnonymousUserID, "one")
	_, _ = svc.Chat(context.Background(), identity.AnonymousUserID, "two")

	responder.mu.Lock()
	defer responder.mu.Unlock()
	if len(responder.gotHistory) != 0 {
		t.Errorf("anonymous caller received history: %+v", responder.gotHistory)
	}
}

func TestServiceChatStorageFailure(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	svc := NewService(&fakeResponder{reply: "ok"}, repo, "", DefaultConfig(), quietLogger())
	_ = repo.Close()

	if _, err := svc.Chat(context.Background(), "user_x", "Hello"); err == nil {
		t.Fatal("expected error when storage is unavailable")
	}
}

func TestServiceModelHealthyCaches(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{}
	cfg := DefaultConfig()
	cfg.HealthCacheTTL = time.Minute
	svc := NewService(responder, newTestRepo(t), "", cfg, quietLogger())

	now := time.Unix(1_700_000_000, 0)
	var nowMu sync.Mutex
	svc.now = func() time.Time {
		nowMu.Lock()
		defer nowMu.Unlock()
		return now
	}

	if !svc.ModelHealthy(context.Background()) {
		t.Fatal("expected healthy model")
	}
	if !svc.ModelHealthy(context.Background()) {
		t.Fatal("expected cached healthy result")
	}
	if got := responder.validations.Load(); got != 1 {
		t.Errorf("validations = %d, want 1", got)
	}

	responder.validateErr = errors.New("invalid API key")
	nowMu.Lock()
	now = now.Add(2 * time.Minute)
	nowMu.Unlock()

	if svc.ModelHealthy(context.Background()) {
		t.Error("expected unhealthy after cache expiry and failed validation")
	}
	if got := responder.validations.Load(); got != 2 {
		t.Errorf("validations = %d, want 2", got)
	}
}

func TestServiceChatRefreshesHealth(t *testing.T) {
	t.Parallel()

	responder := &fakeResponder{err: errors.New("model unavailable")}
	svc := NewService(responder, newTestRepo(t), "", DefaultConfig(), quietLogger())

	_, _ = svc.Chat(context.Background(), "user_x", "Hello")
	if svc.ModelHealthy(context.Background()) {
		t.Error("failed generation should mark the model unhealthy")
	}
	if responder.validations.Load() != 0 {
		t.Error("fresh chat result should be served from cache")
	}
}

// hangingResponder blocks until the request context ends.
type hangingResponder struct {
	started     chan struct{}
	validations atomic.Int32
}

func (h *hangingResponder) Generate(ctx context.Context, _ string, _ []domain.StoredMessage, _ string) (string, error) {
	close(h.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func (h *hangingResponder) Validate(context.Context) error {
	h.validations.Add(1)
	return nil
}

func TestServiceChatCallerCancelKeepsHealthAndTurn(t *testing.T) {
	t.Parallel()

	repo := newTestRepo(t)
	responder := &hangingResponder{started: make(chan struct{})}
	svc := NewService(responder, repo, "", DefaultConfig(), quietLogger())

	if !svc.ModelHealthy(context.Background()) {
		t.Fatal("expected healthy model before the chat")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-responder.started
		cancel()
	}()

	reply, err := svc.Chat(ctx, "user_gone", "Are you open?")
	if err != nil {
		t.Fatalf("Chat failed after caller cancelled: %v", err)
	}
	if !reply.Fallback {
		t.Errorf("expected fallback reply, got %+v", reply)
	}

	if !svc.ModelHealthy(context.Background()) {
		t.Error("caller cancellation must not mark the model unhealthy")
	}
	if got := responder.validations.Load(); got != 1 {
		t.Errorf("validations = %d, want 1", got)
	}

	n, err := repo.CountMessages(context.Background(), "user_gone")
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if n != 2 {
		t.Errorf("stored %d messages, want the user turn and its reply", n)
	}
}
