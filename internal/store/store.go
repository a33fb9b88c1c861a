// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

// Repository persists chat conversations.
type Repository interface {
	// AppendMessage stores a message and sets its ID.
	AppendMessage(ctx context.Context, msg *domain.StoredMessage) error

	// RecentMessages returns up to limit of the user's latest messages, oldest first.
	RecentMessages(ctx context.Context, userID string, limit int) ([]domain.StoredMessage, error)

	// CountMessages returns how many messages are stored for a user.
	CountMessages(ctx context.Context, userID string) (int, error)

	// DeleteMessagesBefore removes messages created before cutoff and returns
	// how many were deleted.
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
