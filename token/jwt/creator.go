package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/users"
)

// CreatorConfig is the part of the backend config the creator needs.
type CreatorConfig interface {
	GetTokenSecret() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
}

// Claims are the access token claims the backend relies on.
type Claims struct {
	Role users.RoleType `json:"role"`
	jwtlib.RegisteredClaims
}

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Creator signs and verifies HS256 access tokens.
type Creator struct {
	secret  []byte
	issuer  string
	expiry  time.Duration
	revoked RevokedChecker
	nowFunc func() time.Time
}

type CreatorOption func(*Creator)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CreatorOption {
	return func(c *Creator) {
		c.nowFunc = nowFunc
	}
}

func WithRevokedChecker(rc RevokedChecker) CreatorOption {
	return func(c *Creator) {
		c.revoked = rc
	}
}

func NewCreator(cfg CreatorConfig, options ...CreatorOption) *Creator {
	c := &Creator{
		secret:  []byte(cfg.GetTokenSecret()),
		issuer:  cfg.GetIssuer(),
		expiry:  cfg.GetAccessTokenExpiry(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// CreateAccessToken signs a token for user that lapses after the configured expiry.
func (c *Creator) CreateAccessToken(user *users.User) (string, *Claims, error) {
	now := c.nowFunc()
	claims := &Claims{
		Role: user.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.expiry)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("[Creator.CreateAccessToken] failed to sign JWT token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, issuer, expiry and revocation. Expired tokens are
// reported with ErrSessionExpired so the handler can say "Token expired".
func (c *Creator) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(c.issuer),
		jwtlib.WithTimeFunc(c.nowFunc),
		jwtlib.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return c.secret, nil
	})
	switch {
	case errs.Is(err, jwtlib.ErrTokenExpired):
		return nil, errs.Wrapf(errs.ErrSessionExpired, "[Creator.Verify] token expired")
	case err != nil || !token.Valid:
		return nil, errs.Wrapf(errs.ErrNotAuthenticated, "[Creator.Verify] invalid token: %v", err)
	}
	if c.revoked != nil && c.revoked.IsRevoked(claims.ID) {
		return nil, errs.Wrapf(errs.ErrNotAuthenticated, "[Creator.Verify] token revoked")
	}
	return claims, nil
}
