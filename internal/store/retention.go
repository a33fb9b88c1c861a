package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/caficafe-chat/internal/shared"
)

// DefaultRetentionInterval is how often the retention worker sweeps.
const DefaultRetentionInterval = time.Hour

const (
	pruneMaxRetries = 3
	pruneBaseDelay  = 100 * time.Millisecond
)

// RetentionConfig controls the retention worker.
type RetentionConfig struct {
	MaxAge   time.Duration // messages older than this are deleted
	Interval time.Duration
	Now      func() time.Time
}

// RunRetentionWorker deletes messages older than cfg.MaxAge every
// cfg.Interval until ctx is done. It sweeps once at start.
func RunRetentionWorker(ctx context.Context, repo Repository, cfg RetentionConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAge <= 0 {
		logger.Info("Retention worker disabled")
		return nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRetentionInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	logger.Info("Retention worker started", "interval", cfg.Interval, "max_age", cfg.MaxAge)

	pruneExpired(ctx, repo, cfg, logger)
	for {
		select {
		case <-ticker.C:
			pruneExpired(ctx, repo, cfg, logger)
		case <-ctx.Done():
			logger.Info("Retention worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func pruneExpired(ctx context.Context, repo Repository, cfg RetentionConfig, logger *slog.Logger) {
	cutoff := cfg.Now().Add(-cfg.MaxAge)
	deleted, err := deleteBeforeWithRetry(ctx, repo, cutoff, logger)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("Retention sweep interrupted by shutdown", "error", err)
			return
		}
		logger.Error("Retention worker failed to delete old messages", "error", err)
		return
	}
	if deleted > 0 {
		logger.Info("Retention worker deleted old messages", "count", deleted, "cutoff", cutoff)
	}
}

// deleteBeforeWithRetry retries SQLITE_BUSY and SQLITE_LOCKED failures with
// exponential backoff: 100ms, 200ms.
func deleteBeforeWithRetry(ctx context.Context, repo Repository, cutoff time.Time, logger *slog.Logger) (int64, error) {
	var err error
	for i := 0; i < pruneMaxRetries; i++ {
		var deleted int64
		deleted, err = repo.DeleteMessagesBefore(ctx, cutoff)
		if err == nil {
			return deleted, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == pruneMaxRetries-1 {
			break
		}

		delay := pruneBaseDelay * time.Duration(1<<i)
		logger.Debug("Retention delete hit a locked database, retrying", "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, fmt.Errorf("delete messages before %s: %w", cutoff.Format(time.RFC3339), err)
}
