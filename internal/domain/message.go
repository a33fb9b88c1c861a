// Package domain contains core domain types for the CafiCafe chat service.
package domain

import (
	"time"
)

// Sender identifies who produced a chat message.
type Sender string

const (
	// SenderUser marks text typed by the person chatting.
	SenderUser Sender = "user"
	// SenderBot marks a reply produced by the chatbot.
	SenderBot Sender = "bot"
	// SenderSystem marks client-rendered notices such as error messages.
	SenderSystem Sender = "system"
)

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderBot, SenderSystem:
		return true
	}
	return false
}

// Message is a single entry in a chat log. Messages are append-only and
// never mutated after creation.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the given time.
func NewMessage(sender Sender, text string, at time.Time) Message {
	return Message{Sender: sender, Text: text, Timestamp: at}
}

// StoredMessage is a persisted conversation entry for one user.
type StoredMessage struct {
	ID        int64
	UserID    string
	Sender    Sender
	Text      string
	CreatedAt time.Time
}
