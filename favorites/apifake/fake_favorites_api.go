package favoritesapifake

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/favorites"
)

var _ favorites.API = (*FakeAPI)(nil)

type FakeAPI struct {
	lock  sync.Mutex
	items []favorites.Item
	calls map[string]int

	ListErr   error
	AddErr    error
	RemoveErr error
}

func NewFakeAPI(items ...favorites.Item) *FakeAPI {
	return &FakeAPI{items: items, calls: make(map[string]int)}
}

func (f *FakeAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func (f *FakeAPI) Stored() []favorites.Item {
	f.lock.Lock()
	defer f.lock.Unlock()
	return slices.Clone(f.items)
}

func (f *FakeAPI) List(_ context.Context) ([]favorites.Item, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["list"]++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return slices.Clone(f.items), nil
}

func (f *FakeAPI) Add(_ context.Context, item favorites.Item) (*favorites.Item, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["add"]++
	if f.AddErr != nil {
		return nil, f.AddErr
	}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *FakeAPI) Remove(_ context.Context, id string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["remove"]++
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	i := slices.IndexFunc(f.items, func(item favorites.Item) bool { return item.ID == id })
	if i < 0 {
		return &apiclient.APIError{Method: http.MethodDelete, Path: favorites.RouteFavorites + "/" + id, StatusCode: http.StatusNotFound, Message: "Favorite not found"}
	}
	f.items = slices.Delete(f.items, i, i+1)
	return nil
}
