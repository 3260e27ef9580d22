// Package notifications keeps the user's notifications and unread count, with
// a short-lived cache and optimistic read-state updates.
package notifications

import (
	"context"
	"strings"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultTTL       = 5 * time.Second
	DefaultPageLimit = 20
)

// Authenticator reports whether a session is active.
type Authenticator interface {
	IsAuthenticated() bool
}

type State struct {
	Notifications []Notification
	UnreadCount   int
	Page          int
	HasMore       bool
	Loading       bool
	Error         string
	LastFetched   *time.Time
}

type Store struct {
	api     API
	auth    Authenticator
	logger  zerolog.Logger
	nowFunc func() time.Time
	ttl     time.Duration
	limit   int

	lock  sync.RWMutex
	state State
}

type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithTTL sets how long a fetch result is served without a network call.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

func WithPageLimit(limit int) StoreOption {
	return func(s *Store) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func NewStore(api API, auth Authenticator, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[NewStore] API is required")
	}
	if auth == nil {
		return nil, errors.New("[NewStore] Authenticator is required")
	}
	s := &Store{
		api:     api,
		auth:    auth,
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
		ttl:     DefaultTTL,
		limit:   DefaultPageLimit,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (st *State) clone() State {
	c := *st
	c.Notifications = make([]Notification, len(st.Notifications))
	copy(c.Notifications, st.Notifications)
	if st.LastFetched != nil {
		t := *st.LastFetched
		c.LastFetched = &t
	}
	return c
}

func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.clone()
}

func (s *Store) UnreadCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.UnreadCount
}

func (s *Store) ClearError() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Error = ""
}

// Reset drops all notifications. Called on logout.
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = State{}
}

func (s *Store) fresh(now time.Time) bool {
	return s.state.LastFetched != nil && now.Sub(*s.state.LastFetched) < s.ttl
}

// FetchNotifications loads the first page. Unless force is set, a result
// younger than the TTL is returned from memory.
func (s *Store) FetchNotifications(ctx context.Context, force bool) ([]Notification, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}

	s.lock.Lock()
	if !force && s.fresh(s.nowFunc()) {
		cached := s.state.clone().Notifications
		s.lock.Unlock()
		return cached, nil
	}
	s.state.Loading = true
	s.state.Error = ""
	s.lock.Unlock()

	page, err := s.api.List(ctx, 1, s.limit)
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "[Store.FetchNotifications]"), err, "failed to load notifications")
	}

	now := s.nowFunc()
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Notifications = dedupe(nil, page.Notifications)
	s.state.UnreadCount = unreadCount(page, s.state.Notifications)
	s.state.Page = 1
	s.state.HasMore = len(page.Notifications) >= s.limit
	s.state.Loading = false
	s.state.LastFetched = &now
	return s.state.clone().Notifications, nil
}

// FetchPage loads a further page and merges it into the list by ID.
func (s *Store) FetchPage(ctx context.Context, page int) ([]Notification, error) {
	if page <= 1 {
		return s.FetchNotifications(ctx, true)
	}
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}

	s.lock.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.lock.Unlock()

	result, err := s.api.List(ctx, page, s.limit)
	if err != nil {
		return nil, s.fail(errors.Wrapf(err, "[Store.FetchPage] page %d", page), err, "failed to load notifications")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Notifications = dedupe(s.state.Notifications, result.Notifications)
	s.state.UnreadCount = unreadCount(result, s.state.Notifications)
	s.state.Page = page
	s.state.HasMore = len(result.Notifications) >= s.limit
	s.state.Loading = false
	return s.state.clone().Notifications, nil
}

// MarkAsRead flips the flag locally before the server confirms it. On failure
// the flag and the unread count are restored to what they were at dispatch.
func (s *Store) MarkAsRead(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return errs.ErrNotAuthenticated
	}
	if strings.TrimSpace(id) == "" {
		return errors.Wrap(errs.ErrInvalidRequest, "[Store.MarkAsRead] id is required")
	}

	s.lock.Lock()
	known, wasRead := false, false
	for i := range s.state.Notifications {
		if s.state.Notifications[i].ID == id {
			known, wasRead = true, s.state.Notifications[i].Read
			s.state.Notifications[i].Read = true
			break
		}
	}
	delta := 0
	if known && !wasRead && s.state.UnreadCount > 0 {
		delta = 1
		s.state.UnreadCount--
	}
	s.lock.Unlock()

	if err := s.api.MarkAsRead(ctx, id); err != nil {
		s.lock.Lock()
		for i := range s.state.Notifications {
			if s.state.Notifications[i].ID == id {
				s.state.Notifications[i].Read = wasRead
				break
			}
		}
		s.state.UnreadCount += delta
		s.state.Error = errs.Message(err, "failed to mark notification as read")
		s.lock.Unlock()
		s.logger.Warn().Err(err).Str("notification_id", id).Msg("mark as read rolled back")
		return errors.Wrapf(err, "[Store.MarkAsRead] %s", id)
	}
	return nil
}

// MarkAllAsRead marks everything read locally and then on the server. A server
// failure is reported but the local change is kept; the next fetch corrects it.
func (s *Store) MarkAllAsRead(ctx context.Context) error {
	if !s.auth.IsAuthenticated() {
		return errs.ErrNotAuthenticated
	}

	s.lock.Lock()
	for i := range s.state.Notifications {
		s.state.Notifications[i].Read = true
	}
	s.state.UnreadCount = 0
	s.lock.Unlock()

	if err := s.api.MarkAllAsRead(ctx); err != nil {
		s.lock.Lock()
		s.state.Error = errs.Message(err, "failed to mark notifications as read")
		s.lock.Unlock()
		return errors.Wrap(err, "[Store.MarkAllAsRead]")
	}
	return nil
}

func (s *Store) fail(wrapped, cause error, fallback string) error {
	s.lock.Lock()
	s.state.Loading = false
	s.state.Error = errs.Message(cause, fallback)
	s.lock.Unlock()
	s.logger.Warn().Err(wrapped).Msg("notification request failed")
	return wrapped
}

// dedupe appends incoming to existing, keyed by ID. An incoming copy of a known
// notification replaces it in place.
func dedupe(existing, incoming []Notification) []Notification {
	out := make([]Notification, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))
	for _, n := range append(append([]Notification(nil), existing...), incoming...) {
		if i, ok := index[n.ID]; ok {
			out[i] = n
			continue
		}
		index[n.ID] = len(out)
		out = append(out, n)
	}
	return out
}

func unreadCount(page *Page, list []Notification) int {
	if page.UnreadCount != nil {
		return *page.UnreadCount
	}
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}
