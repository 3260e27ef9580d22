package notifications

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/pkg/errors"
)

// Backend notification routes
const (
	RouteList        = "/notifications"
	RouteMarkAllRead = "/notifications/read-all"
)

type Notification struct {
	ID        string         `json:"_id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Type      string         `json:"type"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Page is one page of notifications. UnreadCount is nil when the backend did
// not report it.
type Page struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   *int           `json:"unreadCount,omitempty"`
	Pagination    Pagination     `json:"pagination"`
}

type API interface {
	List(ctx context.Context, page, limit int) (*Page, error)
	MarkAsRead(ctx context.Context, id string) error
	MarkAllAsRead(ctx context.Context) error
}

type httpAPI struct {
	client *apiclient.Client
}

var _ API = (*httpAPI)(nil)

func NewHTTPAPI(client *apiclient.Client) API {
	return &httpAPI{client: client}
}

func (a *httpAPI) List(ctx context.Context, page, limit int) (*Page, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var p Page
	if err := a.client.Get(ctx, RouteList, query, &p); err != nil {
		return nil, errors.Wrap(err, "[API.List]")
	}
	return &p, nil
}

func (a *httpAPI) MarkAsRead(ctx context.Context, id string) error {
	path := "/notifications/" + url.PathEscape(id) + "/read"
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: path}, nil); err != nil {
		return errors.Wrapf(err, "[API.MarkAsRead] %s", id)
	}
	return nil
}

func (a *httpAPI) MarkAllAsRead(ctx context.Context) error {
	if err := a.client.Do(ctx, apiclient.Request{Method: http.MethodPut, Path: RouteMarkAllRead}, nil); err != nil {
		return errors.Wrap(err, "[API.MarkAllAsRead]")
	}
	return nil
}
