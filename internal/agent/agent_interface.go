package agent

import (
	"context"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

// Responder produces assistant replies.
// This interface is implemented by the Gemini client.
type Responder interface {
	// Generate answers message given the system instruction and prior turns, oldest first.
	Generate(ctx context.Context, system string, history []domain.StoredMessage, message string) (string, error)

	// Validate makes a minimal model call to confirm the key and model work.
	Validate(ctx context.Context) error
}

// Ensure GeminiClient implements Responder.
var _ Responder = (*GeminiClient)(nil)
