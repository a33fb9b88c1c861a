// Package identity provides anonymous chat user and session identifiers.
package identity

import (
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// UserIDPrefix prefixes every client-generated user ID.
	UserIDPrefix = "user_"
	// AnonymousUserID is used when a request carries no usable user ID.
	AnonymousUserID = "anonymous"
	// DefaultSessionIDValue is used when a request carries no usable session ID.
	DefaultSessionIDValue = "default"

	userIDSuffixLen = 9
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// NewUserID returns a short random ID of the form user_xxxxxxxxx.
func NewUserID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return UserIDPrefix + raw[:userIDSuffixLen]
}

// NewSessionID returns a random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// SanitizeUserID returns id if it is a safe identifier, otherwise AnonymousUserID.
func SanitizeUserID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !idPattern.MatchString(id) {
		return AnonymousUserID
	}
	return id
}

// SanitizeSessionID returns id if it is a safe identifier, otherwise DefaultSessionIDValue.
func SanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !idPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

// IPFromRequest returns a normalized remote IP for rate limiting and tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
