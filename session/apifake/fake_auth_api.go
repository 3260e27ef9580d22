package authapifake

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/session"
	"github.com/jrsteele09/go-estate-client/users"
	"golang.org/x/oauth2"
)

var _ session.AuthAPI = (*FakeAuthAPI)(nil)

// FakeAuthAPI is an in-memory AuthAPI. It keeps one "cookie" session, which is
// what the refresh endpoint would see in a browser.
type FakeAuthAPI struct {
	lock      sync.Mutex
	users     map[string]*users.User // email -> user
	passwords map[string]string      // email -> password
	tokens    map[string]string      // access token -> email
	cookie    string                 // email owning the refresh cookie
	calls     map[string]int

	// Injected failures, returned instead of the normal result when set
	LoginErr         error
	RefreshErr       error
	ProfileErr       error
	UpdateProfileErr error
	LogoutErr        error
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{
		users:     make(map[string]*users.User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		calls:     make(map[string]int),
	}
}

// AddUser seeds an account.
func (f *FakeAuthAPI) AddUser(user *users.User, password string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	f.users[user.Email] = user.Clone()
	f.passwords[user.Email] = password
}

// SetCookie simulates a browser holding a valid refresh cookie for email.
func (f *FakeAuthAPI) SetCookie(email string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.cookie = email
}

// RevokeTokens invalidates every issued access token.
func (f *FakeAuthAPI) RevokeTokens() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.tokens = make(map[string]string)
}

func (f *FakeAuthAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func unauthorized(msg string) error {
	return &apiclient.APIError{Method: http.MethodGet, Path: session.RouteProfile, StatusCode: http.StatusUnauthorized, Message: msg}
}

func (f *FakeAuthAPI) issue(email string) string {
	tok := uuid.New().String()
	f.tokens[tok] = email
	f.cookie = email
	return tok
}

func (f *FakeAuthAPI) Login(_ context.Context, creds session.Credentials) (*session.AuthResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["login"]++
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	u, ok := f.users[creds.Email]
	if !ok || f.passwords[creds.Email] != creds.Password {
		return nil, &apiclient.APIError{Method: http.MethodPost, Path: session.RouteLogin, StatusCode: http.StatusUnauthorized, Message: "Email or password is incorrect"}
	}
	return &session.AuthResult{User: u.Clone(), AccessToken: f.issue(creds.Email)}, nil
}

func (f *FakeAuthAPI) Register(_ context.Context, reg session.Registration) (*session.AuthResult, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["register"]++
	if _, ok := f.users[reg.Email]; ok {
		return nil, &apiclient.APIError{Method: http.MethodPost, Path: session.RouteRegister, StatusCode: http.StatusConflict, Message: "Email already registered"}
	}
	u := &users.User{ID: uuid.New().String(), Username: reg.Username, Email: reg.Email, PhoneNumber: reg.PhoneNumber, Role: users.RoleUser}
	f.users[reg.Email] = u
	f.passwords[reg.Email] = reg.Password
	return &session.AuthResult{User: u.Clone(), AccessToken: f.issue(reg.Email)}, nil
}

func (f *FakeAuthAPI) Refresh(_ context.Context) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["refresh"]++
	if f.RefreshErr != nil {
		return "", f.RefreshErr
	}
	if f.cookie == "" {
		return "", &apiclient.APIError{Method: http.MethodPost, Path: session.RouteRefresh, StatusCode: http.StatusUnauthorized, Message: "Refresh token not found"}
	}
	return f.issue(f.cookie), nil
}

func (f *FakeAuthAPI) userFor(token *oauth2.Token) (*users.User, error) {
	if token == nil {
		return nil, unauthorized("Unauthorized")
	}
	email, ok := f.tokens[token.AccessToken]
	if !ok {
		return nil, unauthorized("Token expired")
	}
	return f.users[email], nil
}

func (f *FakeAuthAPI) Profile(_ context.Context, token *oauth2.Token) (*users.User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["profile"]++
	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}
	u, err := f.userFor(token)
	if err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

func (f *FakeAuthAPI) UpdateProfile(_ context.Context, token *oauth2.Token, update users.ProfileUpdate) (*users.User, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["update_profile"]++
	if f.UpdateProfileErr != nil {
		return nil, f.UpdateProfileErr
	}
	u, err := f.userFor(token)
	if err != nil {
		return nil, err
	}
	update.Apply(u)
	return u.Clone(), nil
}

func (f *FakeAuthAPI) Logout(_ context.Context, token *oauth2.Token) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["logout"]++
	f.cookie = ""
	if token != nil {
		delete(f.tokens, token.AccessToken)
	}
	return f.LogoutErr
}

func (f *FakeAuthAPI) LogoutAll(_ context.Context, token *oauth2.Token) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["logout_all"]++
	if f.LogoutErr != nil {
		return f.LogoutErr
	}
	if token == nil {
		return errors.New("unauthorized")
	}
	email := f.tokens[token.AccessToken]
	for tok, owner := range f.tokens {
		if owner == email {
			delete(f.tokens, tok)
		}
	}
	f.cookie = ""
	return nil
}
