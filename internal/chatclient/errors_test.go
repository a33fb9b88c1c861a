package chatclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusErrorKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusNotFound, KindEndpointNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindServerError},
		{http.StatusBadGateway, KindHTTP},
		{http.StatusUnauthorized, KindHTTP},
	}
	for _, tt := range tests {
		if got := statusError(tt.status, "").Kind; got != tt.want {
			t.Errorf("statusError(%d).Kind = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestErrorMatching(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("send: %w", &Error{Kind: KindNetwork, Err: cause})

	if !errors.Is(err, ErrNetwork) {
		t.Error("expected wrapped error to match ErrNetwork")
	}
	if errors.Is(err, ErrServerError) {
		t.Error("network error must not match ErrServerError")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
	if KindNetwork.Local() || !KindBusy.Local() {
		t.Error("unexpected Local classification")
	}
}

func TestDisplayMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad request", statusError(http.StatusBadRequest, ""), "Invalid request. Please try a different message."},
		{"rate limited", statusError(http.StatusTooManyRequests, ""), displayMessages[KindRateLimited]},
		{"rejection detail", &Error{Kind: KindRejected, Detail: "Message too long (max 1000 characters)."}, "Message too long (max 1000 characters)."},
		{"foreign error", errors.New("boom"), fallbackDisplayMessage},
		{"unknown kind", &Error{Kind: Kind(99)}, fallbackDisplayMessage},
	}
	for _, tt := range tests {
		if got := DisplayMessage(tt.err); got != tt.want {
			t.Errorf("%s: DisplayMessage = %q, want %q", tt.name, got, tt.want)
		}
	}

	for kind := KindEmptyInput; kind <= KindRejected; kind++ {
		if displayMessages[kind] == "" {
			t.Errorf("no display text for %v", kind)
		}
	}
}
