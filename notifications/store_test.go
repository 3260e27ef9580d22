package notifications_test

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/notifications"
	notificationsapifake "github.com/jrsteele09/go-estate-client/notifications/apifake"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type authFlag struct{ on atomic.Bool }

func (a *authFlag) IsAuthenticated() bool { return a.on.Load() }

type testFixture struct {
	api   *notificationsapifake.FakeAPI
	auth  *authFlag
	now   time.Time
	store *notifications.Store
}

func seed(n, unread int) []notifications.Notification {
	items := make([]notifications.Notification, n)
	for i := range items {
		items[i] = notifications.Notification{
			ID:        fmt.Sprintf("n-%d", i+1),
			Title:     "Listing approved",
			Type:      "listing",
			Read:      i >= unread,
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
		}
	}
	return items
}

func setupTestFixture(t *testing.T, items []notifications.Notification, options ...notifications.StoreOption) *testFixture {
	t.Helper()
	f := &testFixture{api: notificationsapifake.NewFakeAPI(items...), auth: &authFlag{}, now: fixedNow}
	f.auth.on.Store(true)

	options = append([]notifications.StoreOption{notifications.WithNowTime(func() time.Time { return f.now })}, options...)
	store, err := notifications.NewStore(f.api, f.auth, options...)
	require.NoError(t, err)
	f.store = store
	return f
}

func TestFetchNotificationsServesCacheWithinTTL(t *testing.T) {
	f := setupTestFixture(t, seed(3, 2))
	ctx := context.Background()

	list, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 2, f.store.UnreadCount())

	f.now = fixedNow.Add(4 * time.Second)
	_, err = f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, f.api.Calls("list"))

	_, err = f.store.FetchNotifications(ctx, true)
	require.NoError(t, err)
	require.Equal(t, 2, f.api.Calls("list"), "force bypasses the cache")

	f.now = f.now.Add(notifications.DefaultTTL)
	_, err = f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 3, f.api.Calls("list"))
}

func TestFetchNotificationsUnauthenticated(t *testing.T) {
	f := setupTestFixture(t, seed(1, 1))
	f.auth.on.Store(false)

	_, err := f.store.FetchNotifications(context.Background(), true)
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	require.Zero(t, f.api.Calls("list"))
}

func TestFetchNotificationsDeduplicates(t *testing.T) {
	f := setupTestFixture(t, seed(3, 3))
	f.api.Duplicate = true

	list, err := f.store.FetchNotifications(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, 3, f.store.UnreadCount())
}

func TestFetchPageMergesByID(t *testing.T) {
	f := setupTestFixture(t, seed(5, 5), notifications.WithPageLimit(3))
	ctx := context.Background()

	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)
	require.True(t, f.store.Snapshot().HasMore)

	// A new notification shifts the server pages so page 2 overlaps page 1.
	f.api.Add(notifications.Notification{ID: "n-0", Title: "New message", CreatedAt: fixedNow.Add(time.Minute)})
	f.api.ReportUnread = true

	list, err := f.store.FetchPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 5)

	seen := map[string]bool{}
	for _, n := range list {
		require.False(t, seen[n.ID], "duplicate %s", n.ID)
		seen[n.ID] = true
	}
	s := f.store.Snapshot()
	require.Equal(t, 6, s.UnreadCount, "backend count wins when reported")
	require.Equal(t, 2, s.Page)
	require.True(t, s.HasMore)
}

func TestMarkAsReadOptimistic(t *testing.T) {
	f := setupTestFixture(t, seed(2, 2))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	require.NoError(t, f.store.MarkAsRead(ctx, "n-1"))
	require.Equal(t, 1, f.store.UnreadCount())
	require.True(t, f.store.Snapshot().Notifications[0].Read)
	require.True(t, f.api.IsRead("n-1"))

	// Marking it again does not double count.
	require.NoError(t, f.store.MarkAsRead(ctx, "n-1"))
	require.Equal(t, 1, f.store.UnreadCount())
}

func TestMarkAsReadRollsBackOnFailure(t *testing.T) {
	f := setupTestFixture(t, seed(3, 3))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	f.api.MarkAsReadErr = &apiclient.APIError{Method: http.MethodPut, Path: "/notifications/n-2/read", StatusCode: http.StatusInternalServerError, Message: "write failed"}
	err = f.store.MarkAsRead(ctx, "n-2")
	require.Error(t, err)

	s := f.store.Snapshot()
	require.False(t, s.Notifications[1].Read)
	require.Equal(t, 3, s.UnreadCount)
	require.Equal(t, "write failed", s.Error)
}

func TestMarkAsReadRollbackRestoresPriorReadFlag(t *testing.T) {
	f := setupTestFixture(t, seed(2, 1))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	f.api.MarkAsReadErr = fmt.Errorf("dial tcp: %w", errs.ErrTransport)
	require.Error(t, f.store.MarkAsRead(ctx, "n-2"))

	s := f.store.Snapshot()
	require.True(t, s.Notifications[1].Read, "an already read item stays read")
	require.Equal(t, 1, s.UnreadCount)
}

func TestMarkAllAsReadIsIdempotent(t *testing.T) {
	f := setupTestFixture(t, seed(4, 3))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	require.NoError(t, f.store.MarkAllAsRead(ctx))
	first := f.store.Snapshot()
	require.NoError(t, f.store.MarkAllAsRead(ctx))
	second := f.store.Snapshot()

	require.Zero(t, second.UnreadCount)
	require.Equal(t, first.Notifications, second.Notifications)
	for _, n := range second.Notifications {
		require.True(t, n.Read)
	}
}

func TestMarkAllAsReadKeepsLocalChangeOnFailure(t *testing.T) {
	f := setupTestFixture(t, seed(2, 2))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	f.api.MarkAllReadErr = &apiclient.APIError{Method: http.MethodPut, Path: "/notifications/read-all", StatusCode: http.StatusBadGateway, Message: "upstream down"}
	require.Error(t, f.store.MarkAllAsRead(ctx))

	s := f.store.Snapshot()
	require.Zero(t, s.UnreadCount)
	require.Equal(t, "upstream down", s.Error)
}

func TestResetClearsNotifications(t *testing.T) {
	f := setupTestFixture(t, seed(2, 2))
	ctx := context.Background()
	_, err := f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)

	f.store.Reset()
	require.Empty(t, f.store.Snapshot().Notifications)

	_, err = f.store.FetchNotifications(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 2, f.api.Calls("list"), "reset also drops the cache")
}
