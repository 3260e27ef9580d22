package session

import (
	"time"

	"github.com/jrsteele09/go-estate-client/users"
)

// Status is the session lifecycle position derived from the state flags.
type Status int

const (
	StatusUninitialized Status = iota
	StatusInitializing
	StatusAuthenticated
	StatusUnauthenticated
	StatusSessionExpired
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusSessionExpired:
		return "session_expired"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the session. AccessToken is empty when
// there is no token, and IsAuthenticated is true exactly when it is not.
type State struct {
	User            *users.User
	AccessToken     string
	TokenExpiry     time.Time
	IsAuthenticated bool
	Loading         bool
	Error           string
	LastLoginTime   *time.Time
	IsInitialized   bool
	SessionExpired  bool
	Status          Status
}
