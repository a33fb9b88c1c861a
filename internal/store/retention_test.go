package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

type flakyRepo struct {
	Repository

	mu      sync.Mutex
	calls   int
	fails   int
	failErr error
	cutoffs []time.Time
}

func (r *flakyRepo) DeleteMessagesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.cutoffs = append(r.cutoffs, cutoff)
	if r.calls <= r.fails {
		return 0, r.failErr
	}
	return 5, nil
}

func (r *flakyRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeleteBeforeWithRetryRecoversFromLock(t *testing.T) {
	t.Parallel()

	repo := &flakyRepo{fails: 1, failErr: errors.New("database is locked (5) (SQLITE_BUSY)")}
	deleted, err := deleteBeforeWithRetry(context.Background(), repo, time.Now(), discardLogger())
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if deleted != 5 || repo.callCount() != 2 {
		t.Errorf("deleted=%d calls=%d, want 5 and 2", deleted, repo.callCount())
	}
}

func TestDeleteBeforeWithRetryStopsOnOtherErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such table: chat_messages")
	repo := &flakyRepo{fails: 10, failErr: cause}
	_, err := deleteBeforeWithRetry(context.Background(), repo, time.Now(), discardLogger())
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
	if repo.callCount() != 1 {
		t.Errorf("non-conflict error retried %d times", repo.callCount())
	}
}

func TestDeleteBeforeWithRetryGivesUp(t *testing.T) {
	t.Parallel()

	repo := &flakyRepo{fails: 10, failErr: errors.New("database is locked")}
	if _, err := deleteBeforeWithRetry(context.Background(), repo, time.Now(), discardLogger()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if repo.callCount() != pruneMaxRetries {
		t.Errorf("calls = %d, want %d", repo.callCount(), pruneMaxRetries)
	}
}

func TestRunRetentionWorkerPrunesAndStops(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	now := time.Now()
	appendAt(t, s, "u", domain.SenderUser, "stale", now.Add(-10*24*time.Hour))
	appendAt(t, s, "u", domain.SenderUser, "recent", now.Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunRetentionWorker(ctx, s, RetentionConfig{MaxAge: 7 * 24 * time.Hour, Interval: time.Hour}, discardLogger())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, err := s.CountMessages(context.Background(), "u")
		if err == nil && n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stale message not pruned, count=%d err=%v", n, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("worker returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunRetentionWorkerDisabled(t *testing.T) {
	t.Parallel()

	repo := &flakyRepo{}
	if err := RunRetentionWorker(context.Background(), repo, RetentionConfig{}, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.callCount() != 0 {
		t.Error("disabled worker must not delete")
	}
}
