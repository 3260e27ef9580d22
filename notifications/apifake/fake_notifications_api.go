package notificationsapifake

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/notifications"
)

var _ notifications.API = (*FakeAPI)(nil)

type FakeAPI struct {
	lock  sync.Mutex
	items []notifications.Notification
	calls map[string]int

	ListErr        error
	MarkAsReadErr  error
	MarkAllReadErr error
	// Duplicate repeats the first notification at the end of every page
	Duplicate bool
	// ReportUnread makes List include the backend's unread count
	ReportUnread bool
}

func NewFakeAPI(items ...notifications.Notification) *FakeAPI {
	return &FakeAPI{items: items, calls: make(map[string]int)}
}

func (f *FakeAPI) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func (f *FakeAPI) Add(n notifications.Notification) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.items = append([]notifications.Notification{n}, f.items...)
}

func (f *FakeAPI) IsRead(id string) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, n := range f.items {
		if n.ID == id {
			return n.Read
		}
	}
	return false
}

func (f *FakeAPI) List(_ context.Context, page, limit int) (*notifications.Page, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["list"]++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	start, end := (page-1)*limit, page*limit
	if start > len(f.items) {
		start = len(f.items)
	}
	if end > len(f.items) {
		end = len(f.items)
	}
	out := append([]notifications.Notification(nil), f.items[start:end]...)
	if f.Duplicate && len(out) > 0 {
		out = append(out, out[0])
	}
	p := &notifications.Page{Notifications: out, Pagination: notifications.Pagination{Page: page, Limit: limit, Total: len(f.items)}}
	if f.ReportUnread {
		unread := 0
		for _, n := range f.items {
			if !n.Read {
				unread++
			}
		}
		p.UnreadCount = &unread
	}
	return p, nil
}

func (f *FakeAPI) MarkAsRead(_ context.Context, id string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["mark_read"]++
	if f.MarkAsReadErr != nil {
		return f.MarkAsReadErr
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return nil
		}
	}
	return &apiclient.APIError{Method: http.MethodPut, Path: "/notifications/" + id + "/read", StatusCode: http.StatusNotFound, Message: "Notification not found"}
}

func (f *FakeAPI) MarkAllAsRead(_ context.Context) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["mark_all_read"]++
	if f.MarkAllReadErr != nil {
		return f.MarkAllReadErr
	}
	for i := range f.items {
		f.items[i].Read = true
	}
	return nil
}
