package favorites

import (
	"context"
	"net/url"
	"time"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/pkg/errors"
)

// Backend favorites routes
const (
	RouteFavorites = "/favorites"
)

type ItemType string

const (
	TypeProperty ItemType = "property"
	TypeProject  ItemType = "project"
)

type Item struct {
	ID       string    `json:"id"`
	Type     ItemType  `json:"type"`
	Title    string    `json:"title"`
	Location string    `json:"location,omitempty"`
	Image    string    `json:"image,omitempty"`
	Slug     string    `json:"slug,omitempty"`
	Price    *float64  `json:"price,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

type API interface {
	List(ctx context.Context) ([]Item, error)
	Add(ctx context.Context, item Item) (*Item, error)
	Remove(ctx context.Context, id string) error
}

type httpAPI struct {
	client *apiclient.Client
}

var _ API = (*httpAPI)(nil)

func NewHTTPAPI(client *apiclient.Client) API {
	return &httpAPI{client: client}
}

func (a *httpAPI) List(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := a.client.Get(ctx, RouteFavorites, nil, &items); err != nil {
		return nil, errors.Wrap(err, "[API.List]")
	}
	return items, nil
}

func (a *httpAPI) Add(ctx context.Context, item Item) (*Item, error) {
	var saved Item
	if err := a.client.Post(ctx, RouteFavorites, item, &saved); err != nil {
		return nil, errors.Wrapf(err, "[API.Add] %s", item.ID)
	}
	return &saved, nil
}

func (a *httpAPI) Remove(ctx context.Context, id string) error {
	if err := a.client.Delete(ctx, RouteFavorites+"/"+url.PathEscape(id), nil); err != nil {
		return errors.Wrapf(err, "[API.Remove] %s", id)
	}
	return nil
}
