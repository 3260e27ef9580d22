package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/pkg/errors"
)

// ManagerConfig is the part of the backend config the manager needs.
type ManagerConfig interface {
	GetRefreshTokenLength() int
	GetRefreshTokenExpiry() time.Duration
}

// Manager creates, rotates and revokes refresh tokens.
type Manager struct {
	repo    Repo
	config  ManagerConfig
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = nowFunc
	}
}

func NewManager(repo Repo, cfg ManagerConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create issues a new refresh token for userID.
func (m *Manager) Create(userID string) (*StoredRefreshToken, error) {
	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, errors.Wrap(err, "[Manager.Create] rand.Read")
	}

	now := m.nowFunc()
	rt := &StoredRefreshToken{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		Iat:       now,
		ExpiresAt: now.Add(m.config.GetRefreshTokenExpiry()),
	}
	if err := m.repo.Upsert(rt); err != nil {
		return nil, errors.Wrap(err, "[Manager.Create] repo.Upsert")
	}
	return rt, nil
}

// Rotate exchanges a valid token for a new one. The old token stops working
// whether or not the exchange succeeds.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, error) {
	rt, err := m.Validate(token)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Delete(token); err != nil {
		return nil, errors.Wrap(err, "[Manager.Rotate] repo.Delete")
	}
	return m.Create(rt.UserID)
}

// Validate returns the stored token if it exists and has not expired.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	if token == "" {
		return nil, errs.Wrapf(errs.ErrNotAuthenticated, "[Manager.Validate] no refresh token")
	}
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrNotAuthenticated, "[Manager.Validate] unknown refresh token")
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, errs.Wrapf(errs.ErrSessionExpired, "[Manager.Validate] refresh token expired")
	}
	return rt, nil
}

// Revoke deletes one token. Unknown tokens are ignored.
func (m *Manager) Revoke(token string) {
	if token != "" {
		_ = m.repo.Delete(token)
	}
}

// RevokeAll deletes every token of the user and reports how many there were.
func (m *Manager) RevokeAll(userID string) (int, error) {
	n, err := m.repo.DeleteByUserID(userID)
	if err != nil {
		return 0, errors.Wrap(err, "[Manager.RevokeAll] repo.DeleteByUserID")
	}
	return n, nil
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return !m.nowFunc().Before(rt.ExpiresAt)
}
