package session

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Backend auth routes
const (
	RouteLogin     = "/auth/login"
	RouteRegister  = "/auth/register"
	RouteRefresh   = "/auth/refresh"
	RouteProfile   = "/auth/profile"
	RouteLogout    = "/auth/logout"
	RouteLogoutAll = "/auth/logout-all"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// AuthResult is the data payload of a successful login or registration.
type AuthResult struct {
	User        *users.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

// AuthAPI is the backend side of the session. The refresh credential travels
// as an HTTP-only cookie and never passes through this interface.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, reg Registration) (*AuthResult, error)
	Refresh(ctx context.Context) (string, error)
	Profile(ctx context.Context, token *oauth2.Token) (*users.User, error)
	UpdateProfile(ctx context.Context, token *oauth2.Token, update users.ProfileUpdate) (*users.User, error)
	Logout(ctx context.Context, token *oauth2.Token) error
	LogoutAll(ctx context.Context, token *oauth2.Token) error
}

type httpAuthAPI struct {
	client *apiclient.Client
}

var _ AuthAPI = (*httpAuthAPI)(nil)

func NewHTTPAuthAPI(client *apiclient.Client) AuthAPI {
	return &httpAuthAPI{client: client}
}

type userPayload struct {
	User *users.User `json:"user"`
}

func (a *httpAuthAPI) Login(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var result AuthResult
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteLogin, Body: creds, Anonymous: true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *httpAuthAPI) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	var result AuthResult
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteRegister, Body: reg, Anonymous: true}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *httpAuthAPI) Refresh(ctx context.Context) (string, error) {
	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteRefresh, Anonymous: true}, &result); err != nil {
		return "", err
	}
	if result.AccessToken == "" {
		return "", errors.New("[httpAuthAPI.Refresh] empty access token")
	}
	return result.AccessToken, nil
}

func (a *httpAuthAPI) Profile(ctx context.Context, token *oauth2.Token) (*users.User, error) {
	var result userPayload
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: RouteProfile, Token: token}, &result); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, errors.New("[httpAuthAPI.Profile] response has no user")
	}
	return result.User, nil
}

func (a *httpAuthAPI) UpdateProfile(ctx context.Context, token *oauth2.Token, update users.ProfileUpdate) (*users.User, error) {
	var result userPayload
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: RouteProfile, Body: update, Token: token}, &result); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, errors.New("[httpAuthAPI.UpdateProfile] response has no user")
	}
	return result.User, nil
}

func (a *httpAuthAPI) Logout(ctx context.Context, token *oauth2.Token) error {
	return a.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteLogout, Token: token, Anonymous: token == nil}, nil)
}

func (a *httpAuthAPI) LogoutAll(ctx context.Context, token *oauth2.Token) error {
	return a.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteLogoutAll, Token: token, Anonymous: token == nil}, nil)
}
