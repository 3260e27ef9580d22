// Package sidebar holds the role-filtered navigation menu. Every edit is
// computed locally as a full item and group list and written back as one
// document.
package sidebar

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type State struct {
	Config  *Config
	Loading bool
	Error   string
}

type Store struct {
	api    SidebarAPI
	logger zerolog.Logger
	newID  func() string

	lock  sync.RWMutex
	state State
}

type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDGenerator sets the id function for new items and groups (primarily for testing)
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

func NewStore(api SidebarAPI, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[NewStore] SidebarAPI is required")
	}
	s := &Store{
		api:    api,
		logger: zerolog.Nop(),
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return State{Config: s.state.Config.Clone(), Loading: s.state.Loading, Error: s.state.Error}
}

func (s *Store) Config() *Config {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Config.Clone()
}

func (s *Store) ClearError() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Error = ""
}

func (s *Store) FetchSidebarConfig(ctx context.Context) (*Config, error) {
	s.setLoading()
	cfg, err := s.api.GetSidebarConfig(ctx)
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "[Store.FetchSidebarConfig]"), err, "failed to load sidebar")
	}
	s.replace(cfg)
	return cfg.Clone(), nil
}

// UpdateSidebarConfig writes the whole document. Nil slices in patch keep the
// current items or groups. A zero Version means the config currently held. A
// stale version is rejected by the backend; the store then reloads the current
// document and returns ErrConflict.
func (s *Store) UpdateSidebarConfig(ctx context.Context, patch ConfigPatch) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, current, patch)
}

// write sends patch on top of current, the config the patch was computed
// from, so the version always matches the arrays being written.
func (s *Store) write(ctx context.Context, current *Config, patch ConfigPatch) (*Config, error) {
	if patch.Items == nil {
		patch.Items = current.Items
	}
	if patch.Groups == nil {
		patch.Groups = current.Groups
	}
	if patch.Version == 0 {
		patch.Version = current.Version
	}
	patch.Items = NormalizeItems(patch.Items)
	patch.Groups = NormalizeGroups(patch.Groups)

	s.setLoading()
	cfg, err := s.api.UpdateConfig(ctx, current.ID, patch)
	if err != nil {
		if apiclient.StatusCode(err) == http.StatusConflict {
			s.logger.Warn().Str("config_id", current.ID).Int("version", patch.Version).Msg("sidebar changed elsewhere, reloading")
			if _, ferr := s.FetchSidebarConfig(ctx); ferr != nil {
				s.logger.Warn().Err(ferr).Msg("sidebar reload failed")
			}
			s.lock.Lock()
			s.state.Error = errs.Message(err, "sidebar was changed by someone else")
			s.lock.Unlock()
			return nil, errs.Wrapf(errs.ErrConflict, "[Store.UpdateSidebarConfig] version %d", patch.Version)
		}
		return nil, s.fail(errors.Wrap(err, "[Store.UpdateSidebarConfig]"), err, "failed to save sidebar")
	}
	s.replace(cfg)
	return cfg.Clone(), nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, update ItemUpdate) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(current.Items, func(m MenuItem) bool { return m.ID == id })
	if i < 0 {
		return nil, errs.Wrapf(errs.ErrNotFound, "[Store.UpdateItem] item %s", id)
	}
	update.apply(&current.Items[i])
	if err := validateItem(current.Items[i]); err != nil {
		return nil, errors.Wrap(err, "[Store.UpdateItem]")
	}
	return s.write(ctx, current, ConfigPatch{Items: current.Items})
}

// AddItem appends item at the end of the menu. An empty ID is generated.
func (s *Store) AddItem(ctx context.Context, item MenuItem) (*Config, error) {
	if err := validateItem(item); err != nil {
		return nil, errors.Wrap(err, "[Store.AddItem]")
	}
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = s.newID()
	}
	if slices.ContainsFunc(current.Items, func(m MenuItem) bool { return m.ID == item.ID }) {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, "[Store.AddItem] duplicate item %s", item.ID)
	}
	item.Order = len(current.Items)
	return s.write(ctx, current, ConfigPatch{Items: append(current.Items, item)})
}

func (s *Store) DeleteItem(ctx context.Context, id string) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	before := len(current.Items)
	items := slices.DeleteFunc(current.Items, func(m MenuItem) bool { return m.ID == id })
	if len(items) == before {
		return nil, errs.Wrapf(errs.ErrNotFound, "[Store.DeleteItem] item %s", id)
	}
	return s.write(ctx, current, ConfigPatch{Items: items})
}

// ReorderItems sets the menu order to ids, which must name every item once.
func (s *Store) ReorderItems(ctx context.Context, ids []string) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(current.Items))
	for i, m := range current.Items {
		index[m.ID] = i
	}
	if err := checkPermutation(index, ids); err != nil {
		return nil, errors.Wrap(err, "[Store.ReorderItems]")
	}
	items := make([]MenuItem, len(ids))
	for order, id := range ids {
		items[order] = current.Items[index[id]]
		items[order].Order = order
	}
	return s.write(ctx, current, ConfigPatch{Items: items})
}

func (s *Store) AddGroup(ctx context.Context, group Group) (*Config, error) {
	if strings.TrimSpace(group.Title) == "" {
		return nil, errors.Wrap(errs.ErrInvalidRequest, "[Store.AddGroup] title is required")
	}
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	if group.ID == "" {
		group.ID = s.newID()
	}
	if group.ID == UngroupedID || slices.ContainsFunc(current.Groups, func(g Group) bool { return g.ID == group.ID }) {
		return nil, errs.Wrapf(errs.ErrInvalidRequest, "[Store.AddGroup] duplicate group %s", group.ID)
	}
	group.Order = len(current.Groups)
	return s.write(ctx, current, ConfigPatch{Groups: append(current.Groups, group)})
}

func (s *Store) UpdateGroup(ctx context.Context, id string, update GroupUpdate) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(current.Groups, func(g Group) bool { return g.ID == id })
	if i < 0 {
		return nil, errs.Wrapf(errs.ErrNotFound, "[Store.UpdateGroup] group %s", id)
	}
	update.apply(&current.Groups[i])
	if strings.TrimSpace(current.Groups[i].Title) == "" {
		return nil, errors.Wrap(errs.ErrInvalidRequest, "[Store.UpdateGroup] title is required")
	}
	return s.write(ctx, current, ConfigPatch{Groups: current.Groups})
}

// DeleteGroup removes the group and moves its items to the ungrouped bucket.
// The items themselves are kept.
func (s *Store) DeleteGroup(ctx context.Context, id string) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	before := len(current.Groups)
	groups := slices.DeleteFunc(current.Groups, func(g Group) bool { return g.ID == id })
	if len(groups) == before {
		return nil, errs.Wrapf(errs.ErrNotFound, "[Store.DeleteGroup] group %s", id)
	}
	for i := range current.Items {
		if current.Items[i].GroupID == id {
			current.Items[i].GroupID = UngroupedID
		}
	}
	return s.write(ctx, current, ConfigPatch{Items: current.Items, Groups: groups})
}

func (s *Store) ReorderGroups(ctx context.Context, ids []string) (*Config, error) {
	current, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(current.Groups))
	for i, g := range current.Groups {
		index[g.ID] = i
	}
	if err := checkPermutation(index, ids); err != nil {
		return nil, errors.Wrap(err, "[Store.ReorderGroups]")
	}
	groups := make([]Group, len(ids))
	for order, id := range ids {
		groups[order] = current.Groups[index[id]]
		groups[order].Order = order
	}
	return s.write(ctx, current, ConfigPatch{Groups: groups})
}

// VisibleItems returns the active items role may see, in menu order. Items in
// a hidden or forbidden group are excluded.
func (s *Store) VisibleItems(role users.RoleType) []MenuItem {
	var out []MenuItem
	for _, section := range s.Sections(role) {
		out = append(out, section.Items...)
	}
	slices.SortStableFunc(out, func(a, b MenuItem) int { return a.Order - b.Order })
	return out
}

// Sections groups the items role may see. Groups come in their order, the
// ungrouped bucket last; empty sections are left out.
func (s *Store) Sections(role users.RoleType) []Section {
	cfg := s.Config()
	if cfg == nil {
		return nil
	}
	groups := NormalizeGroups(cfg.Groups)
	items := NormalizeItems(cfg.Items)

	known := make(map[string]int, len(groups))
	for i, g := range groups {
		known[g.ID] = i
	}
	buckets := make([][]MenuItem, len(groups)+1)
	ungrouped := len(groups)
	for _, item := range items {
		if !item.IsActive || !item.AllowedFor(role) {
			continue
		}
		b, ok := known[item.GroupID]
		if !ok {
			b = ungrouped
		}
		buckets[b] = append(buckets[b], item)
	}

	var sections []Section
	for i := range groups {
		g := groups[i]
		if !g.IsVisible || !g.AllowedFor(role) || len(buckets[i]) == 0 {
			continue
		}
		sections = append(sections, Section{Group: &g, Items: buckets[i]})
	}
	if len(buckets[ungrouped]) > 0 {
		sections = append(sections, Section{Items: buckets[ungrouped]})
	}
	return sections
}

// current returns a private copy of the loaded config, loading it first if
// needed.
func (s *Store) current(ctx context.Context) (*Config, error) {
	if cfg := s.Config(); cfg != nil {
		return cfg, nil
	}
	return s.FetchSidebarConfig(ctx)
}

func (s *Store) setLoading() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Loading = true
	s.state.Error = ""
}

func (s *Store) replace(cfg *Config) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Config = cfg.Clone()
	s.state.Loading = false
}

func (s *Store) fail(wrapped, cause error, fallback string) error {
	s.lock.Lock()
	s.state.Loading = false
	s.state.Error = errs.Message(cause, fallback)
	s.lock.Unlock()
	s.logger.Warn().Err(wrapped).Msg("sidebar request failed")
	return wrapped
}

func validateItem(item MenuItem) error {
	if strings.TrimSpace(item.Name) == "" || strings.TrimSpace(item.Href) == "" {
		return errors.Wrap(errs.ErrInvalidRequest, "item name and href are required")
	}
	for _, r := range item.Roles {
		if !r.Valid() {
			return errs.Wrapf(errs.ErrInvalidRequest, "unknown role %q", r)
		}
	}
	return nil
}

func checkPermutation(index map[string]int, ids []string) error {
	if len(ids) != len(index) {
		return errs.Wrapf(errs.ErrInvalidRequest, "expected %d ids, got %d", len(index), len(ids))
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := index[id]; !ok || seen[id] {
			return errs.Wrapf(errs.ErrInvalidRequest, "unknown or repeated id %q", id)
		}
		seen[id] = true
	}
	return nil
}
