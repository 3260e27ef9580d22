// Package apiclient is the HTTP client wrapper for the marketplace backend. It
// attaches the bearer token, keeps the refresh cookie in a cookie jar, and
// decodes the backend's {success, data, message} envelope.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

const (
	RequestIDHeader = "X-Request-ID"
	maxBodyBytes    = 8 << 20
	defaultTimeout  = 30 * time.Second
)

// Envelope is the uniform response shape of every backend endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Token overrides the client's token source for this request only. It is
	// used while a new session is being established and not yet committed.
	Token *oauth2.Token
	// Anonymous suppresses the Authorization header.
	Anonymous bool
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
	userAgent  string

	tokensLock sync.RWMutex
	tokens     oauth2.TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A cookie jar is attached
// if the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "[apiclient.New] invalid base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[apiclient.New] base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zerolog.Nop(),
		userAgent:  "estate-client/1.0",
	}
	for _, opt := range options {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, errors.Wrap(err, "[apiclient.New] cookiejar.New")
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// SetTokenSource installs the source of bearer tokens. The session store
// registers itself here once it is constructed.
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.tokensLock.Lock()
	defer c.tokensLock.Unlock()
	c.tokens = ts
}

func (c *Client) tokenSource() oauth2.TokenSource {
	c.tokensLock.RLock()
	defer c.tokensLock.RUnlock()
	return c.tokens
}

// BaseURL returns the backend origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HTTPClient returns the underlying client. Sharing it shares the cookie jar
// and with it the refresh cookie.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Cookies returns the cookies the jar would send to the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.httpClient.Jar.Cookies(c.baseURL)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do executes the request and decodes the envelope's data into out (which may
// be nil). Failures are *APIError for backend-reported errors and wrap
// ErrTransport for network errors.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}

	requestID := uuid.New().String()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", r.Method).Str("path", r.Path).Str("request_id", requestID).Msg("request failed")
		return errors.Wrapf(errs.ErrTransport, "%s %s: %v", r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Str("request_id", requestID).
		Msg("api request")

	return c.decode(r, resp, out)
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	target := *c.baseURL
	target.Path = c.baseURL.Path + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		payload, err := json.Marshal(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.newRequest] marshal body")
		}
		body = bytes.NewReader(payload)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.newRequest] http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if r.Anonymous {
		return req, nil
	}
	if r.Token != nil {
		r.Token.SetAuthHeader(req)
		return req, nil
	}
	if ts := c.tokenSource(); ts != nil {
		// No token simply means an anonymous request; the backend decides.
		if tok, err := ts.Token(); err == nil && tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
		}
	}
	return req, nil
}

func (c *Client) decode(r Request, resp *http.Response, out any) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrapf(errs.ErrTransport, "%s %s: read body: %v", r.Method, r.Path, err)
	}

	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Method: r.Method, Path: r.Path, StatusCode: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		return errors.Wrapf(errs.ErrInvalidEnvelope, "%s %s: %v", r.Method, r.Path, decodeErr)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return &APIError{Method: r.Method, Path: r.Path, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(errs.ErrInvalidEnvelope, "%s %s: decode data: %v", r.Method, r.Path, err)
	}
	return nil
}
