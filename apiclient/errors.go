package apiclient

import (
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
)

// APIError is a failure reported by the backend, either through a non-2xx
// status or an envelope with success=false.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// UserMessage returns the message the backend intended for the user.
func (e *APIError) UserMessage() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return errs.ErrRequestFailed
}

// IsAuthError reports whether err means the access token was rejected: an HTTP
// 401 or 403, or a backend message mentioning an expired, invalid or unauthorized token.
// Transport failures are never auth errors.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errs.Is(err, errs.ErrSessionExpired) {
		return true
	}
	var apiErr *APIError
	if !errs.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return errs.IsAuthMessage(apiErr.Message)
}

// StatusCode returns the HTTP status of an APIError in err's chain, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errs.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
