// Package favorites tracks the listings a user has saved. Adds and removes
// show immediately and are undone if the backend refuses them.
package favorites

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Authenticator reports whether a session is active.
type Authenticator interface {
	IsAuthenticated() bool
}

type State struct {
	Items   []Item
	Loading bool
	Error   string
}

type Store struct {
	api     API
	auth    Authenticator
	logger  zerolog.Logger
	nowFunc func() time.Time

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
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return State{Items: cloneItems(s.state.Items), Loading: s.state.Loading, Error: s.state.Error}
}

func (s *Store) Items() []Item {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return cloneItems(s.state.Items)
}

func (s *Store) IsFavorite(id string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.indexOf(id) >= 0
}

func (s *Store) ClearError() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Error = ""
}

// Reset forgets every favorite. Called on logout.
func (s *Store) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = State{}
}

func (s *Store) Fetch(ctx context.Context) ([]Item, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}

	s.lock.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.lock.Unlock()

	items, err := s.api.List(ctx)
	if err != nil {
		s.lock.Lock()
		s.state.Loading = false
		s.state.Error = errs.Message(err, "failed to load favorites")
		s.lock.Unlock()
		return nil, errors.Wrap(err, "[Store.Fetch]")
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Items = cloneItems(items)
	s.state.Loading = false
	return cloneItems(items), nil
}

// Add saves item. It appears in the list straight away and is removed again if
// the backend rejects it.
func (s *Store) Add(ctx context.Context, item Item) (*Item, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}
	if strings.TrimSpace(item.ID) == "" {
		return nil, errors.Wrap(errs.ErrInvalidRequest, "[Store.Add] id is required")
	}
	if item.Type != TypeProperty && item.Type != TypeProject {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, "[Store.Add] unknown type %q", item.Type)
	}

	s.lock.Lock()
	if s.indexOf(item.ID) >= 0 {
		s.lock.Unlock()
		return &item, nil
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = s.nowFunc()
	}
	s.state.Items = append(s.state.Items, item)
	s.lock.Unlock()

	saved, err := s.api.Add(ctx, item)
	if err != nil {
		s.lock.Lock()
		if i := s.indexOf(item.ID); i >= 0 {
			s.state.Items = slices.Delete(s.state.Items, i, i+1)
		}
		s.state.Error = errs.Message(err, "failed to add favorite")
		s.lock.Unlock()
		s.logger.Warn().Err(err).Str("favorite_id", item.ID).Msg("add favorite rolled back")
		return nil, errors.Wrapf(err, "[Store.Add] %s", item.ID)
	}

	s.lock.Lock()
	if i := s.indexOf(item.ID); i >= 0 && saved != nil {
		s.state.Items[i] = *saved
	}
	s.lock.Unlock()
	if saved == nil {
		return &item, nil
	}
	return saved, nil
}

// Remove deletes the favorite locally, then on the server. On failure the item
// is put back where it was.
func (s *Store) Remove(ctx context.Context, id string) error {
	if !s.auth.IsAuthenticated() {
		return errs.ErrNotAuthenticated
	}

	s.lock.Lock()
	at := s.indexOf(id)
	if at < 0 {
		s.lock.Unlock()
		return nil
	}
	removed := s.state.Items[at]
	s.state.Items = slices.Delete(s.state.Items, at, at+1)
	s.lock.Unlock()

	if err := s.api.Remove(ctx, id); err != nil {
		s.lock.Lock()
		if s.indexOf(id) < 0 {
			s.state.Items = slices.Insert(s.state.Items, min(at, len(s.state.Items)), removed)
		}
		s.state.Error = errs.Message(err, "failed to remove favorite")
		s.lock.Unlock()
		s.logger.Warn().Err(err).Str("favorite_id", id).Msg("remove favorite rolled back")
		return errors.Wrapf(err, "[Store.Remove] %s", id)
	}
	return nil
}

// Toggle adds item when it is not a favorite and removes it when it is. It
// reports whether the item is a favorite afterwards.
func (s *Store) Toggle(ctx context.Context, item Item) (bool, error) {
	if !s.auth.IsAuthenticated() {
		return false, errs.ErrNotAuthenticated
	}
	if s.IsFavorite(item.ID) {
		if err := s.Remove(ctx, item.ID); err != nil {
			return true, err
		}
		return false, nil
	}
	if _, err := s.Add(ctx, item); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.state.Items, func(item Item) bool { return item.ID == id })
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
