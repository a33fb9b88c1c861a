package chatclient

import (
	"sync"

	"github.com/ashureev/caficafe-chat/internal/domain"
)

// MessageLog is an ordered, append-only record of a chat.
type MessageLog struct {
	mu       sync.RWMutex
	messages []domain.Message
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append adds a message to the end of the log.
func (l *MessageLog) Append(msg domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of the log in append order.
func (l *MessageLog) Messages() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages in the log.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// CountBySender returns how many messages the given sender produced.
func (l *MessageLog) CountBySender(sender domain.Sender) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, m := range l.messages {
		if m.Sender == sender {
			n++
		}
	}
	return n
}
