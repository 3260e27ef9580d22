package sidebar

import (
	"context"
	"net/url"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/pkg/errors"
)

// Backend sidebar routes
const (
	RouteConfig = "/sidebar/config"
)

// SidebarAPI reads and writes the sidebar document.
type SidebarAPI interface {
	GetSidebarConfig(ctx context.Context) (*Config, error)
	UpdateConfig(ctx context.Context, id string, patch ConfigPatch) (*Config, error)
}

type httpSidebarAPI struct {
	client *apiclient.Client
}

var _ SidebarAPI = (*httpSidebarAPI)(nil)

func NewHTTPSidebarAPI(client *apiclient.Client) SidebarAPI {
	return &httpSidebarAPI{client: client}
}

func (a *httpSidebarAPI) GetSidebarConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := a.client.Get(ctx, RouteConfig, nil, &cfg); err != nil {
		return nil, errors.Wrap(err, "[SidebarAPI.GetSidebarConfig]")
	}
	return &cfg, nil
}

func (a *httpSidebarAPI) UpdateConfig(ctx context.Context, id string, patch ConfigPatch) (*Config, error) {
	var cfg Config
	if err := a.client.Put(ctx, RouteConfig+"/"+url.PathEscape(id), patch, &cfg); err != nil {
		return nil, errors.Wrapf(err, "[SidebarAPI.UpdateConfig] %s", id)
	}
	return &cfg, nil
}
