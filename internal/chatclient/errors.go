package chatclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes chat failures.
type Kind int

const (
	// KindEmptyInput means the trimmed message was empty.
	KindEmptyInput Kind = iota + 1
	// KindTooLong means the message exceeded the configured maximum length.
	KindTooLong
	// KindBusy means another send was still in flight.
	KindBusy
	// KindHTTP is a non-2xx status without a more specific kind.
	KindHTTP
	// KindEndpointNotFound is an HTTP 404.
	KindEndpointNotFound
	// KindRateLimited is an HTTP 429.
	KindRateLimited
	// KindServerError is an HTTP 500.
	KindServerError
	// KindNetwork is a transport failure: refused connection, DNS, timeout.
	KindNetwork
	// KindMalformedResponse means the reply body could not be interpreted.
	KindMalformedResponse
	// KindRejected means the service answered with success=false.
	KindRejected
)

var kindNames = map[Kind]string{
	KindEmptyInput:        "empty input",
	KindTooLong:           "message too long",
	KindBusy:              "send in progress",
	KindHTTP:              "http error",
	KindEndpointNotFound:  "endpoint not found",
	KindRateLimited:       "rate limited",
	KindServerError:       "server error",
	KindNetwork:           "network error",
	KindMalformedResponse: "malformed response",
	KindRejected:          "rejected by service",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Local reports whether the failure was detected before any request was made.
func (k Kind) Local() bool {
	return k == KindEmptyInput || k == KindTooLong || k == KindBusy
}

// Error is the single error type returned by Client operations.
type Error struct {
	Kind   Kind
	Status int    // HTTP status for HTTP kinds
	Detail string // server-provided or diagnostic text
	Err    error
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
	ErrTooLong           = &Error{Kind: KindTooLong}
	ErrBusy              = &Error{Kind: KindBusy}
	ErrHTTP              = &Error{Kind: KindHTTP}
	ErrEndpointNotFound  = &Error{Kind: KindEndpointNotFound}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrServerError       = &Error{Kind: KindServerError}
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrRejected          = &Error{Kind: KindRejected}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// statusError maps a non-2xx HTTP status to its error kind.
func statusError(status int, detail string) *Error {
	kind := KindHTTP
	switch status {
	case http.StatusNotFound:
		kind = KindEndpointNotFound
	case http.StatusTooManyRequests:
		kind = KindRateLimited
	case http.StatusInternalServerError:
		kind = KindServerError
	}
	return &Error{Kind: kind, Status: status, Detail: detail}
}

var displayMessages = map[Kind]string{
	KindEmptyInput:        "Please enter a message.",
	KindTooLong:           "Your message is too long. Please shorten it and try again.",
	KindBusy:              "Please wait for the current reply before sending another message.",
	KindHTTP:              "Sorry, something went wrong. Please try again in a moment.",
	KindEndpointNotFound:  "The chat service could not be found. Please try again later.",
	KindRateLimited:       "You're sending messages too quickly. Please wait a moment and try again.",
	KindServerError:       "Server error. Our team has been notified. Please try again later.",
	KindNetwork:           "Unable to connect to our chat service. Please check your internet connection and try again.",
	KindMalformedResponse: "We received an unexpected reply from the chat service. Please try again.",
	KindRejected:          "Sorry, something went wrong. Please try again.",
}

const fallbackDisplayMessage = "Sorry, something went wrong. Please try again in a moment."

// DisplayMessage maps an error to the short text shown to the person chatting.
// Rejections carrying a server message show that message instead.
func DisplayMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return fallbackDisplayMessage
	}
	if e.Kind == KindHTTP && e.Status == http.StatusBadRequest {
		return "Invalid request. Please try a different message."
	}
	if e.Kind == KindRejected && e.Detail != "" {
		return e.Detail
	}
	if msg, ok := displayMessages[e.Kind]; ok {
		return msg
	}
	return fallbackDisplayMessage
}
