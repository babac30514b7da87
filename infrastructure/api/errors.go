package api

import (
	"errors"
	"strings"
)

// ErrContactRestricted marks the backend's "user does not accept
// messages" rejection. The backend only exposes it as message text,
// so the substring match lives here and nowhere else.
var ErrContactRestricted = errors.New("recipient does not accept messages")

// Error is a domain failure the backend reported with success:false.
// It is distinct from transport errors, which are returned as-is.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "api: request failed"
	}
	return "api: " + e.Message
}

func (e *Error) Is(target error) bool {
	if target == ErrContactRestricted {
		return strings.Contains(strings.ToLower(e.Message), "does not accept messages")
	}
	return false
}
