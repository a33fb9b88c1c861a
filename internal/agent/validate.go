package agent

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMessageTooLong is returned when input exceeds the configured length.
	ErrMessageTooLong = errors.New("message too long")
	// ErrProhibitedContent is returned when input contains a blocked word.
	ErrProhibitedContent = errors.New("prohibited content")
)

var prohibitedWords = []string{"spam", "hack", "exploit"}

// ValidationError carries the text shown to the person chatting.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateMessage trims raw, collapses whitespace runs to a single space and
// applies the length and content rules. maxLen counts characters; 0 disables
// the length check.
func ValidateMessage(raw string, maxLen int) (string, error) {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if cleaned == "" {
		return "", &ValidationError{Err: ErrEmptyMessage, Message: "Message cannot be empty."}
	}
	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		return "", &ValidationError{
			Err:     ErrMessageTooLong,
			Message: fmt.Sprintf("Message too long (max %d characters).", maxLen),
		}
	}
	lower := strings.ToLower(cleaned)
	for _, word := range prohibitedWords {
		if strings.Contains(lower, word) {
			return "", &ValidationError{Err: ErrProhibitedContent, Message: "Message contains prohibited content."}
		}
	}
	return cleaned, nil
}
