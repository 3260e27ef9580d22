package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the estate client
var (
	// Session errors
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")

	// Transport and envelope errors
	ErrTransport        = errors.New("transport error")
	ErrInvalidEnvelope  = errors.New("invalid response envelope")
	ErrRequestFailed    = errors.New("request failed")
	ErrRedirectRequired = errors.New("redirect handler required")

	// Validation errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidAmount  = errors.New("invalid amount")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInternal = errors.New("internal error")
)

// authErrorMarkers are the message fragments that identify an expired or
// rejected access token. "invalid" alone is too broad (validation failures use
// it) so it only counts next to a token word.
var (
	authErrorMarkers  = []string{"expired", "unauthorized", "unauthorised", "unauthenticated"}
	tokenErrorMarkers = []string{"token", "jwt", "session", "signature"}
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsAuthMessage reports whether msg describes an expired, invalid or
// unauthorized credential.
func IsAuthMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range authErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if !strings.Contains(lower, "invalid") {
		return false
	}
	for _, marker := range tokenErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Message returns the innermost human readable message of err, or fallback
// when err is nil or empty.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var msgErr interface{ UserMessage() string }
	if errors.As(err, &msgErr) {
		if m := msgErr.UserMessage(); m != "" {
			return m
		}
	}
	if m := err.Error(); m != "" {
		return m
	}
	return fallback
}
