package refresh

import (
	"time"
)

// StoredRefreshToken is the server-side record of a refresh cookie. The client
// only ever holds Token, an opaque random string.
type StoredRefreshToken struct {
	Token     string
	UserID    string
	Iat       time.Time
	ExpiresAt time.Time
}

// Repo stores refresh tokens keyed by the token string. A user may hold one
// token per device.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	ListByUserID(userID string) ([]*StoredRefreshToken, error)
	DeleteByUserID(userID string) (int, error)
}
