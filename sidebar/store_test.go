package sidebar_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/internal/utils"
	"github.com/jrsteele09/go-estate-client/sidebar"
	sidebarapifake "github.com/jrsteele09/go-estate-client/sidebar/apifake"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	api   *sidebarapifake.FakeSidebarAPI
	store *sidebar.Store
	ids   int
}

func testConfig() *sidebar.Config {
	return &sidebar.Config{
		ID:      "cfg-1",
		Version: 1,
		Groups: []sidebar.Group{
			{ID: "g-account", Title: "Account", Order: 0, IsVisible: true},
			{ID: "g-admin", Title: "Administration", Order: 1, IsVisible: true, AllowedRoles: []users.RoleType{users.RoleAdmin, users.RoleEmployee}},
		},
		Items: []sidebar.MenuItem{
			{ID: "wallet", Name: "Wallet", Href: "/account/wallet", Order: 0, IsActive: true, GroupID: "g-account"},
			{ID: "favorites", Name: "Favorites", Href: "/account/favorites", Order: 1, IsActive: true, GroupID: "g-account"},
			{ID: "profile", Name: "Profile", Href: "/account/profile", Order: 2, IsActive: true, GroupID: "g-account"},
			{ID: "projects", Name: "Projects", Href: "/admin/projects", Order: 3, IsActive: true, GroupID: "g-admin"},
			{ID: "settings", Name: "Settings", Href: "/admin/settings", Order: 4, IsActive: true, GroupID: "g-admin", Roles: []users.RoleType{users.RoleAdmin}},
			{ID: "help", Name: "Help", Href: "/help", Order: 5, IsActive: true},
			{ID: "old", Name: "Old reports", Href: "/admin/reports", Order: 6, IsActive: false},
		},
	}
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{api: sidebarapifake.NewFakeSidebarAPI(testConfig())}
	store, err := sidebar.NewStore(f.api, sidebar.WithIDGenerator(func() string {
		f.ids++
		return fmt.Sprintf("new-%d", f.ids)
	}))
	require.NoError(t, err)
	f.store = store

	_, err = store.FetchSidebarConfig(context.Background())
	require.NoError(t, err)
	return f
}

func itemIDs(items []sidebar.MenuItem) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func requireDenseOrder(t *testing.T, cfg *sidebar.Config) {
	t.Helper()
	for i, item := range cfg.Items {
		require.Equal(t, i, item.Order, "item %s", item.ID)
	}
	for i, g := range cfg.Groups {
		require.Equal(t, i, g.Order, "group %s", g.ID)
	}
}

func TestDeleteGroupMovesMembersToUngrouped(t *testing.T) {
	f := setupTestFixture(t)

	cfg, err := f.store.DeleteGroup(context.Background(), "g-account")
	require.NoError(t, err)

	require.Len(t, cfg.Groups, 1)
	require.Equal(t, "g-admin", cfg.Groups[0].ID)
	for _, id := range []string{"wallet", "favorites", "profile"} {
		i := -1
		for j, item := range cfg.Items {
			if item.ID == id {
				i = j
			}
		}
		require.GreaterOrEqual(t, i, 0, "item %s must be kept", id)
		require.Equal(t, sidebar.UngroupedID, cfg.Items[i].GroupID)
	}
	require.Len(t, cfg.Items, 7)
	require.Equal(t, 2, cfg.Version)
	requireDenseOrder(t, cfg)
}

func TestDeleteUnknownGroup(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.store.DeleteGroup(context.Background(), "nope")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Zero(t, f.api.Calls("update"))
}

func TestAddItemAppendsWithGeneratedID(t *testing.T) {
	f := setupTestFixture(t)

	cfg, err := f.store.AddItem(context.Background(), sidebar.MenuItem{Name: "Posts", Href: "/admin/posts", IsActive: true, GroupID: "g-admin"})
	require.NoError(t, err)
	require.Len(t, cfg.Items, 8)
	last := cfg.Items[7]
	require.Equal(t, "new-1", last.ID)
	require.Equal(t, 7, last.Order)

	patch := f.api.Patches[0]
	require.Len(t, patch.Items, 8, "writes carry the whole item list")
	require.Len(t, patch.Groups, 2, "and the whole group list")
}

func TestAddItemValidation(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.store.AddItem(ctx, sidebar.MenuItem{Name: "No link"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, err = f.store.AddItem(ctx, sidebar.MenuItem{Name: "Bad", Href: "/x", Roles: []users.RoleType{"superuser"}})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, err = f.store.AddItem(ctx, sidebar.MenuItem{ID: "wallet", Name: "Dup", Href: "/x"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	require.Zero(t, f.api.Calls("update"))
}

func TestUpdateItem(t *testing.T) {
	f := setupTestFixture(t)

	cfg, err := f.store.UpdateItem(context.Background(), "help", sidebar.ItemUpdate{Name: utils.Ptr("Support"), IsActive: utils.Ptr(false)})
	require.NoError(t, err)
	require.Equal(t, "Support", cfg.Items[5].Name)
	require.False(t, cfg.Items[5].IsActive)

	_, err = f.store.UpdateItem(context.Background(), "missing", sidebar.ItemUpdate{Name: utils.Ptr("x")})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteItemKeepsOrderDense(t *testing.T) {
	f := setupTestFixture(t)

	cfg, err := f.store.DeleteItem(context.Background(), "favorites")
	require.NoError(t, err)
	require.Equal(t, []string{"wallet", "profile", "projects", "settings", "help", "old"}, itemIDs(cfg.Items))
	requireDenseOrder(t, cfg)
}

func TestReorderItems(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	order := []string{"help", "wallet", "favorites", "profile", "projects", "settings", "old"}

	cfg, err := f.store.ReorderItems(ctx, order)
	require.NoError(t, err)
	require.Equal(t, order, itemIDs(cfg.Items))
	requireDenseOrder(t, cfg)

	_, err = f.store.ReorderItems(ctx, []string{"help", "wallet"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, err = f.store.ReorderItems(ctx, []string{"help", "help", "favorites", "profile", "projects", "settings", "old"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestGroupOperations(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	cfg, err := f.store.AddGroup(ctx, sidebar.Group{Title: "Content", IsVisible: true})
	require.NoError(t, err)
	require.Len(t, cfg.Groups, 3)
	require.Equal(t, 2, cfg.Groups[2].Order)

	cfg, err = f.store.UpdateGroup(ctx, "new-1", sidebar.GroupUpdate{Title: utils.Ptr("Content & posts")})
	require.NoError(t, err)
	require.Equal(t, "Content & posts", cfg.Groups[2].Title)

	cfg, err = f.store.ReorderGroups(ctx, []string{"new-1", "g-admin", "g-account"})
	require.NoError(t, err)
	require.Equal(t, "new-1", cfg.Groups[0].ID)
	requireDenseOrder(t, cfg)

	_, err = f.store.AddGroup(ctx, sidebar.Group{ID: sidebar.UngroupedID, Title: "Reserved"})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, err = f.store.UpdateGroup(ctx, "g-admin", sidebar.GroupUpdate{Title: utils.Ptr(" ")})
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestSectionsFilterByRole(t *testing.T) {
	f := setupTestFixture(t)

	userSections := f.store.Sections(users.RoleUser)
	require.Len(t, userSections, 2)
	require.Equal(t, "g-account", userSections[0].Group.ID)
	require.Nil(t, userSections[1].Group)
	require.Equal(t, []string{"help"}, itemIDs(userSections[1].Items))

	require.Equal(t, []string{"wallet", "favorites", "profile", "projects", "help"}, itemIDs(f.store.VisibleItems(users.RoleEmployee)))
	require.Equal(t, []string{"wallet", "favorites", "profile", "projects", "settings", "help"}, itemIDs(f.store.VisibleItems(users.RoleAdmin)))
}

func TestSectionsResolveDanglingGroupAsUngrouped(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.store.UpdateItem(context.Background(), "help", sidebar.ItemUpdate{GroupID: utils.Ptr("deleted-elsewhere")})
	require.NoError(t, err)

	sections := f.store.Sections(users.RoleUser)
	last := sections[len(sections)-1]
	require.Nil(t, last.Group)
	require.Equal(t, []string{"help"}, itemIDs(last.Items))
}

func TestStaleWriteIsRejectedAndReloaded(t *testing.T) {
	f := setupTestFixture(t)
	f.api.BumpVersion()

	_, err := f.store.DeleteItem(context.Background(), "help")
	require.ErrorIs(t, err, errs.ErrConflict)

	s := f.store.Snapshot()
	require.Equal(t, 2, s.Config.Version, "store reloads the newer document")
	require.Len(t, s.Config.Items, 7)
	require.Equal(t, "Sidebar config was modified", s.Error)
}

func TestDerivedWriteKeepsVersionItWasComputedFrom(t *testing.T) {
	api := sidebarapifake.NewFakeSidebarAPI(testConfig())
	ctx := context.Background()

	var store *sidebar.Store
	// Another write from this process lands between AddItem reading the
	// config and sending its patch.
	store, err := sidebar.NewStore(api, sidebar.WithIDGenerator(func() string {
		_, err := store.DeleteItem(ctx, "help")
		require.NoError(t, err)
		return "new-1"
	}))
	require.NoError(t, err)
	_, err = store.FetchSidebarConfig(ctx)
	require.NoError(t, err)

	_, err = store.AddItem(ctx, sidebar.MenuItem{Name: "Reports", Href: "/reports", IsActive: true})
	require.ErrorIs(t, err, errs.ErrConflict)

	stored := api.Stored()
	require.Equal(t, 2, stored.Version)
	require.NotContains(t, itemIDs(stored.Items), "help", "deleted item must not be resurrected")
	require.NotContains(t, itemIDs(stored.Items), "new-1")
	require.Len(t, api.Patches, 1)
}

func TestUpdateFailureKeepsConfig(t *testing.T) {
	f := setupTestFixture(t)
	f.api.UpdateErr = &apiclient.APIError{Method: http.MethodPut, Path: "/sidebar/config/cfg-1", StatusCode: http.StatusInternalServerError, Message: "database unavailable"}

	_, err := f.store.DeleteItem(context.Background(), "help")
	require.Error(t, err)

	s := f.store.Snapshot()
	require.Len(t, s.Config.Items, 7)
	require.Equal(t, "database unavailable", s.Error)
	require.False(t, s.Loading)
}

func TestWriteLoadsConfigFirst(t *testing.T) {
	api := sidebarapifake.NewFakeSidebarAPI(testConfig())
	store, err := sidebar.NewStore(api)
	require.NoError(t, err)

	_, err = store.DeleteItem(context.Background(), "old")
	require.NoError(t, err)
	require.Equal(t, 1, api.Calls("get"))
	require.Len(t, api.Stored().Items, 6)
}
