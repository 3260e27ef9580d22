package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, handler http.HandlerFunc, options ...apiclient.Option) *apiclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := apiclient.New(server.URL+"/api", options...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := apiclient.New("/api")
	require.Error(t, err)
}

func TestDoDecodesEnvelopeData(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/things", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.NotEmpty(t, r.Header.Get(apiclient.RequestIDHeader))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"name": "villa"}})
	})

	var out struct {
		Name string `json:"name"`
	}
	err := c.Get(context.Background(), "/things", map[string][]string{"page": {"2"}}, &out)
	require.NoError(t, err)
	require.Equal(t, "villa", out.Name)
}

func TestDoTreatsMissingSuccessAsError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{}, "message": "quota exceeded"})
	})

	err := c.Get(context.Background(), "/things", nil, nil)
	require.Error(t, err)

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "quota exceeded", apiErr.Message)
	require.ErrorIs(t, err, errs.ErrRequestFailed)
	require.False(t, apiclient.IsAuthError(err))
}

func TestDoClassifiesUnauthorized(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token expired"})
	})

	err := c.Get(context.Background(), "/auth/profile", nil, nil)
	require.True(t, apiclient.IsAuthError(err))
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
	require.Equal(t, "Token expired", errs.Message(err, ""))
}

func TestDoClassifiesForbidden(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "message": "Forbidden: insufficient permissions"})
	})

	err := c.Put(context.Background(), "/sidebar-config/main", map[string]string{}, nil)
	require.True(t, apiclient.IsAuthError(err))
	require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))
}

func TestDoNonJSONErrorBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.Get(context.Background(), "/x", nil, nil)
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "bad gateway", apiErr.Message)
}

func TestDoAttachesBearerFromTokenSource(t *testing.T) {
	var got string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}, apiclient.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "abc", TokenType: "Bearer"})))

	require.NoError(t, c.Get(context.Background(), "/x", nil, nil))
	require.Equal(t, "Bearer abc", got)

	// An explicit token wins over the source
	require.NoError(t, c.Do(context.Background(), apiclient.Request{Path: "/x", Token: &oauth2.Token{AccessToken: "override"}}, nil))
	require.Equal(t, "Bearer override", got)

	require.NoError(t, c.Do(context.Background(), apiclient.Request{Path: "/x", Anonymous: true}, nil))
	require.Empty(t, got)
}

func TestCookieJarKeepsRefreshCookie(t *testing.T) {
	var seen string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: "r1", Path: "/", HttpOnly: true})
		case "/api/auth/refresh":
			if ck, err := r.Cookie("refreshToken"); err == nil {
				seen = ck.Value
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	require.NoError(t, c.Post(context.Background(), "/auth/login", map[string]string{}, nil))
	require.NoError(t, c.Post(context.Background(), "/auth/refresh", nil, nil))
	require.Equal(t, "r1", seen)
	require.Len(t, c.Cookies(), 1)
}

func TestDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := apiclient.New(url)
	require.NoError(t, err)

	err = c.Get(context.Background(), "/x", nil, nil)
	require.ErrorIs(t, err, errs.ErrTransport)
	require.False(t, apiclient.IsAuthError(err))
}
