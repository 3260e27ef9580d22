package sidebarapifake

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/sidebar"
)

var _ sidebar.SidebarAPI = (*FakeSidebarAPI)(nil)

// FakeSidebarAPI stores one config document and enforces its version the way
// the backend does.
type FakeSidebarAPI struct {
	lock    sync.Mutex
	config  *sidebar.Config
	calls   map[string]int
	Patches []sidebar.ConfigPatch

	GetErr    error
	UpdateErr error
}

func NewFakeSidebarAPI(cfg *sidebar.Config) *FakeSidebarAPI {
	return &FakeSidebarAPI{config: cfg.Clone(), calls: make(map[string]int)}
}

func (f *FakeSidebarAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

// Stored returns the backend's copy.
func (f *FakeSidebarAPI) Stored() *sidebar.Config {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.config.Clone()
}

// BumpVersion simulates another editor saving the config.
func (f *FakeSidebarAPI) BumpVersion() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.config.Version++
}

func (f *FakeSidebarAPI) GetSidebarConfig(_ context.Context) (*sidebar.Config, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["get"]++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.config.Clone(), nil
}

func (f *FakeSidebarAPI) UpdateConfig(_ context.Context, id string, patch sidebar.ConfigPatch) (*sidebar.Config, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["update"]++
	path := sidebar.RouteConfig + "/" + id
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	if id != f.config.ID {
		return nil, &apiclient.APIError{Method: http.MethodPut, Path: path, StatusCode: http.StatusNotFound, Message: "Sidebar config not found"}
	}
	if patch.Version != f.config.Version {
		return nil, &apiclient.APIError{Method: http.MethodPut, Path: path, StatusCode: http.StatusConflict, Message: "Sidebar config was modified"}
	}
	f.Patches = append(f.Patches, patch)
	next := &sidebar.Config{ID: f.config.ID, Items: patch.Items, Groups: patch.Groups, Version: f.config.Version + 1}
	f.config = next.Clone()
	return next.Clone(), nil
}
