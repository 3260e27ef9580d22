// Package session holds the authenticated session: the current user, the
// memory-only access token and the flags that drive route guards. The refresh
// credential lives in the HTTP client's cookie jar, never in this store.
package session

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const sessionExpiredMessage = "your session has expired, please log in again"

// state is the mutable session. token == nil means no access token.
type state struct {
	user           *users.User
	token          *oauth2.Token
	loading        bool
	err            string
	lastLoginTime  *time.Time
	isInitialized  bool
	sessionExpired bool
	initializing   bool
	started        bool
}

func (st *state) clearIdentity() {
	st.user = nil
	st.token = nil
}

// holds reports whether tok is still the session's access token.
func (st *state) holds(tok *oauth2.Token) bool {
	return st.token != nil && tok != nil && st.token.AccessToken == tok.AccessToken
}

func (st *state) status() Status {
	switch {
	case st.initializing:
		return StatusInitializing
	case st.token != nil:
		return StatusAuthenticated
	case st.sessionExpired:
		return StatusSessionExpired
	case !st.started && !st.isInitialized:
		return StatusUninitialized
	default:
		return StatusUnauthenticated
	}
}

func (st *state) snapshot() State {
	s := State{
		User:            st.user.Clone(),
		IsAuthenticated: st.token != nil,
		Loading:         st.loading,
		Error:           st.err,
		IsInitialized:   st.isInitialized,
		SessionExpired:  st.sessionExpired,
		Status:          st.status(),
	}
	if st.token != nil {
		s.AccessToken = st.token.AccessToken
		s.TokenExpiry = st.token.Expiry
	}
	if st.lastLoginTime != nil {
		t := *st.lastLoginTime
		s.LastLoginTime = &t
	}
	return s
}

// Store is the auth session store. It is safe for concurrent use; concurrent
// operations are not serialised and the last one to finish wins.
type Store struct {
	api     AuthAPI
	logger  zerolog.Logger
	nowFunc func() time.Time

	lock  sync.RWMutex
	state state

	listenersLock sync.RWMutex
	listeners     map[int]func(State)
	nextListener  int
}

var _ oauth2.TokenSource = (*Store)(nil)

type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(api AuthAPI, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[NewStore] AuthAPI is required")
	}
	s := &Store{
		api:       api,
		logger:    zerolog.Nop(),
		nowFunc:   time.Now,
		listeners: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Subscribe registers fn to be called with a snapshot after every state change.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.listenersLock.Lock()
	defer s.listenersLock.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.listenersLock.Lock()
		defer s.listenersLock.Unlock()
		delete(s.listeners, id)
	}
}

// update applies fn under the lock and notifies listeners outside it.
func (s *Store) update(fn func(st *state)) State {
	s.lock.Lock()
	fn(&s.state)
	snap := s.state.snapshot()
	s.lock.Unlock()

	s.listenersLock.RLock()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersLock.RUnlock()
	for _, l := range listeners {
		l(snap)
	}
	return snap
}

func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.snapshot()
}

func (s *Store) Status() Status {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.status()
}

func (s *Store) IsAuthenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.token != nil
}

func (s *Store) IsInitialized() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.isInitialized
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.user.Clone()
}

func (s *Store) HasRole(role users.RoleType) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.user.HasRole(role)
}

// Token implements oauth2.TokenSource for the HTTP client.
func (s *Store) Token() (*oauth2.Token, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.state.token == nil {
		return nil, errs.ErrNotAuthenticated
	}
	tok := *s.state.token
	return &tok, nil
}

func (s *Store) currentToken() *oauth2.Token {
	tok, err := s.Token()
	if err != nil {
		return nil
	}
	return tok
}

func (s *Store) ClearError() {
	s.update(func(st *state) {
		st.err = ""
	})
}

// AcknowledgeSessionExpired clears the expiry flag once the UI has shown the
// re-authentication prompt.
func (s *Store) AcknowledgeSessionExpired() {
	s.update(func(st *state) {
		st.sessionExpired = false
	})
}

// Login authenticates with email and password.
func (s *Store) Login(ctx context.Context, creds Credentials) (*users.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, s.fail(errors.Wrap(errs.ErrInvalidCredentials, "[Store.Login] email and password are required"), "email and password are required")
	}

	s.update(func(st *state) {
		st.loading = true
		st.err = ""
	})

	result, err := s.api.Login(ctx, creds)
	if err == nil {
		err = validateAuthResult(result)
	}
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "[Store.Login] api.Login"), errs.Message(err, "login failed"))
	}

	s.establish(result)
	s.logger.Info().Str("user_id", result.User.ID).Msg("logged in")
	return result.User.Clone(), nil
}

// Register creates an account and starts a session for it.
func (s *Store) Register(ctx context.Context, reg Registration) (*users.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.TrimSpace(reg.Username)
	if reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return nil, s.fail(errors.Wrap(errs.ErrInvalidRequest, "[Store.Register] username, email and password are required"), "username, email and password are required")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return nil, s.fail(errors.Wrap(errs.ErrInvalidRequest, "[Store.Register] invalid email"), "invalid email address")
	}

	s.update(func(st *state) {
		st.loading = true
		st.err = ""
	})

	result, err := s.api.Register(ctx, reg)
	if err == nil {
		err = validateAuthResult(result)
	}
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "[Store.Register] api.Register"), errs.Message(err, "registration failed"))
	}

	s.establish(result)
	s.logger.Info().Str("user_id", result.User.ID).Msg("registered")
	return result.User.Clone(), nil
}

// InitializeAuth restores the session once per store. Later calls are no-ops
// that report the current authentication state.
func (s *Store) InitializeAuth(ctx context.Context) bool {
	s.lock.RLock()
	done := s.state.started || s.state.isInitialized
	authenticated := s.state.token != nil
	s.lock.RUnlock()
	if done {
		return authenticated
	}
	return s.RestoreAuth(ctx)
}

// RestoreAuth silently re-establishes the session from the refresh cookie:
// refresh, then fetch the profile with the new token, then commit both. A
// missing or expired cookie is the normal logged-out path, so failure only
// resets the session and never records an error.
func (s *Store) RestoreAuth(ctx context.Context) bool {
	s.update(func(st *state) {
		st.started = true
		st.initializing = true
		st.loading = true
		st.isInitialized = false
		st.err = ""
	})

	user, tok, err := s.restore(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("no session to restore")
		s.update(func(st *state) {
			st.clearIdentity()
			st.loading = false
			st.initializing = false
			st.isInitialized = true
		})
		return false
	}

	s.update(func(st *state) {
		st.user = user
		st.token = tok
		st.loading = false
		st.initializing = false
		st.isInitialized = true
		st.sessionExpired = false
	})
	s.logger.Debug().Str("user_id", user.ID).Msg("session restored")
	return true
}

func (s *Store) restore(ctx context.Context) (*users.User, *oauth2.Token, error) {
	raw, err := s.api.Refresh(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Store.RestoreAuth] api.Refresh")
	}
	tok := NewToken(raw)
	user, err := s.api.Profile(ctx, tok)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Store.RestoreAuth] api.Profile")
	}
	if user == nil {
		return nil, nil, errors.New("[Store.RestoreAuth] empty profile")
	}
	return user.Clone(), tok, nil
}

// GetProfile re-validates the token by fetching the profile. A rejected token
// tears the session down and raises SessionExpired instead of Error.
func (s *Store) GetProfile(ctx context.Context) (*users.User, error) {
	tok := s.currentToken()
	if tok == nil {
		return nil, errs.ErrNotAuthenticated
	}

	s.update(func(st *state) {
		st.loading = true
		st.err = ""
	})

	user, err := s.api.Profile(ctx, tok)
	if err != nil {
		return nil, s.failAuthenticated(tok, err, "[Store.GetProfile] api.Profile", "failed to load profile")
	}
	return s.commitUser(tok, user, "[Store.GetProfile]")
}

// UpdateProfile submits the changed fields and replaces the user with the
// server's copy.
func (s *Store) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.User, error) {
	tok := s.currentToken()
	if tok == nil {
		return nil, errs.ErrNotAuthenticated
	}
	if update.Empty() {
		return nil, errors.Wrap(errs.ErrInvalidRequest, "[Store.UpdateProfile] nothing to update")
	}

	s.update(func(st *state) {
		st.loading = true
		st.err = ""
	})

	user, err := s.api.UpdateProfile(ctx, tok, update)
	if err != nil {
		return nil, s.failAuthenticated(tok, err, "[Store.UpdateProfile] api.UpdateProfile", "failed to update profile")
	}
	return s.commitUser(tok, user, "[Store.UpdateProfile]")
}

// commitUser stores a profile fetched with tok. If the session moved on
// (logout, or another login) while the call was in flight the result is
// dropped and the current session is left alone.
func (s *Store) commitUser(tok *oauth2.Token, user *users.User, op string) (*users.User, error) {
	committed := false
	s.update(func(st *state) {
		if !st.holds(tok) {
			return
		}
		st.loading = false
		st.user = user.Clone()
		committed = true
	})
	if !committed {
		return nil, sessionChanged(op)
	}
	return user.Clone(), nil
}

func sessionChanged(op string) error {
	return errors.Wrap(errs.ErrNotAuthenticated, op+" session changed while the request was in flight")
}

// Logout ends the session on this device. Local state is cleared even when
// the server call fails; that failure is returned for logging only.
func (s *Store) Logout(ctx context.Context) error {
	return s.logout(ctx, s.api.Logout, "[Store.Logout]")
}

// LogoutAll ends every session of the user on every device.
func (s *Store) LogoutAll(ctx context.Context) error {
	return s.logout(ctx, s.api.LogoutAll, "[Store.LogoutAll]")
}

func (s *Store) logout(ctx context.Context, call func(context.Context, *oauth2.Token) error, op string) error {
	tok := s.currentToken()
	s.update(func(st *state) {
		st.loading = true
	})

	err := call(ctx, tok)

	s.update(func(st *state) {
		st.clearIdentity()
		st.loading = false
		st.err = ""
		st.sessionExpired = false
		st.isInitialized = true
	})

	if err != nil {
		s.logger.Warn().Err(err).Msg("server logout failed, local session cleared")
		return errors.Wrap(err, op+" server logout")
	}
	s.logger.Info().Msg("logged out")
	return nil
}

// ExpireSession tears the session down as if the token had been rejected.
// Other stores call this through the facade when a request returns 401.
func (s *Store) ExpireSession() {
	s.update(func(st *state) {
		if st.token == nil && st.user == nil {
			return
		}
		st.clearIdentity()
		st.loading = false
		st.sessionExpired = true
	})
}

func (s *Store) establish(result *AuthResult) {
	now := s.nowFunc()
	tok := NewToken(result.AccessToken)
	s.update(func(st *state) {
		st.user = result.User.Clone()
		st.token = tok
		st.loading = false
		st.err = ""
		st.lastLoginTime = &now
		st.isInitialized = true
		st.sessionExpired = false
	})
}

// fail records a login/registration failure and clears the identity.
func (s *Store) fail(err error, msg string) error {
	s.update(func(st *state) {
		st.clearIdentity()
		st.loading = false
		st.err = msg
	})
	return err
}

// failAuthenticated handles a failure of a call made with tok. A failure that
// lands after tok stopped being the session's token is dropped.
func (s *Store) failAuthenticated(tok *oauth2.Token, cause error, op, fallback string) error {
	err := errors.Wrap(cause, op)
	authErr := apiclient.IsAuthError(cause)
	current := false
	s.update(func(st *state) {
		if !st.holds(tok) {
			return
		}
		current = true
		st.loading = false
		if authErr {
			st.clearIdentity()
			st.sessionExpired = true
			return
		}
		st.err = errs.Message(cause, fallback)
	})
	switch {
	case !current:
		s.logger.Debug().Err(err).Msg("dropped failure of a previous session")
		return sessionChanged(op)
	case authErr:
		s.logger.Info().Err(err).Msg("session expired")
		return errs.Wrapf(errs.ErrSessionExpired, "%s", sessionExpiredMessage)
	}
	return err
}

func validateAuthResult(result *AuthResult) error {
	if result == nil || result.User == nil || result.AccessToken == "" {
		return errors.Wrap(errs.ErrInvalidEnvelope, "auth response missing user or access token")
	}
	return nil
}

// NewToken wraps a raw access token. When the token is a JWT its exp claim is
// read, without verification, so callers can see when it will lapse.
func NewToken(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	return tok
}
