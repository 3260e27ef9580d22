package mockapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/favorites"
	"github.com/jrsteele09/go-estate-client/internal/config"
	"github.com/jrsteele09/go-estate-client/mockapi"
	"github.com/jrsteele09/go-estate-client/notifications"
	"github.com/jrsteele09/go-estate-client/session"
	"github.com/jrsteele09/go-estate-client/sidebar"
	refreshrepofake "github.com/jrsteele09/go-estate-client/token/refresh/repofake"
	"github.com/jrsteele09/go-estate-client/users"
	fakeuserrepo "github.com/jrsteele09/go-estate-client/users/repofake"
	"github.com/jrsteele09/go-estate-client/wallet"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	adminEmail    = "admin@estate.test"
	adminPassword = "Admin12345"
	hashSecret    = "test-hash-secret"
)

type testConfig struct {
	config.Config
}

func (testConfig) GetEnv() string                      { return "TEST" }
func (testConfig) GetAdminEmail() string               { return adminEmail }
func (testConfig) GetAdminPassword() string            { return adminPassword }
func (testConfig) GetSeedDemoData() bool               { return true }
func (testConfig) GetPaymentHashSecret() string        { return hashSecret }
func (testConfig) GetAccessTokenExpiry() time.Duration { return 15 * time.Minute }
func (testConfig) GetCookieSecure() bool               { return false }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testFixture struct {
	server *httptest.Server
	clock  *testClock
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	clock := &testClock{now: time.Now().Truncate(time.Second)}
	srv, err := mockapi.New(testConfig{config.New()}, mockapi.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, mockapi.WithNowTime(clock.Now))
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testFixture{server: ts, clock: clock}
}

func (f *testFixture) newClient(t *testing.T) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(f.server.URL + mockapi.APIPrefix)
	require.NoError(t, err)
	return c
}

// login signs in and installs the access token on the client.
func (f *testFixture) login(t *testing.T, c *apiclient.Client, email, password string) *session.AuthResult {
	t.Helper()
	var result session.AuthResult
	err := c.Do(context.Background(), apiclient.Request{
		Method:    http.MethodPost,
		Path:      session.RouteLogin,
		Body:      session.Credentials{Email: email, Password: password},
		Anonymous: true,
	}, &result)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	c.SetTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: result.AccessToken}))
	return &result
}

func TestLoginAndProfile(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	result := f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	require.Equal(t, users.RoleUser, result.User.Role)
	require.NotEmpty(t, c.Cookies(), "refresh cookie should be stored in the jar")

	var profile struct {
		User *users.User `json:"user"`
	}
	require.NoError(t, c.Get(context.Background(), session.RouteProfile, nil, &profile))
	require.Equal(t, mockapi.DemoUserEmail, profile.User.Email)
}

func TestLoginWithWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	err := c.Do(context.Background(), apiclient.Request{
		Method:    http.MethodPost,
		Path:      session.RouteLogin,
		Body:      session.Credentials{Email: mockapi.DemoUserEmail, Password: "Wrong12345"},
		Anonymous: true,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Email or password is incorrect", apiErr.Message)
}

func TestRegisterValidation(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	register := func(reg session.Registration) error {
		return c.Do(context.Background(), apiclient.Request{Method: http.MethodPost, Path: session.RouteRegister, Body: reg, Anonymous: true}, nil)
	}

	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(register(session.Registration{Username: "bob", Email: "bob@x.com", Password: "weak"})))
	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(register(session.Registration{Username: "bob", Email: "bob@x.com", Password: "Strong123", PhoneNumber: "12ab"})))
	require.Equal(t, http.StatusConflict, apiclient.StatusCode(register(session.Registration{Username: "demo", Email: mockapi.DemoUserEmail, Password: "Strong123"})))
	require.NoError(t, register(session.Registration{Username: "bob", Email: "bob@x.com", Password: "Strong123", PhoneNumber: "0901234567"}))
}

func TestRefreshRotatesCookie(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	before := c.Cookies()[0].Value

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, c.Do(context.Background(), apiclient.Request{Method: http.MethodPost, Path: session.RouteRefresh, Anonymous: true}, &out))
	require.NotEmpty(t, out.AccessToken)
	require.NotEqual(t, before, c.Cookies()[0].Value)

	anonymous := f.newClient(t)
	err := anonymous.Do(context.Background(), apiclient.Request{Method: http.MethodPost, Path: session.RouteRefresh, Anonymous: true}, nil)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
}

func TestExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)

	f.clock.Advance(16 * time.Minute)
	err := c.Get(context.Background(), wallet.RouteWalletInfo, nil, nil)
	require.True(t, apiclient.IsAuthError(err))

	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Token expired", apiErr.Message)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)

	require.NoError(t, c.Post(context.Background(), session.RouteLogout, nil, nil))
	err := c.Get(context.Background(), wallet.RouteWalletInfo, nil, nil)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
}

func TestLogoutAllEndsEveryDevice(t *testing.T) {
	f := setupTestFixture(t)
	phone := f.newClient(t)
	laptop := f.newClient(t)
	f.login(t, phone, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	f.login(t, laptop, mockapi.DemoUserEmail, mockapi.DemoUserPassword)

	require.NoError(t, phone.Post(context.Background(), session.RouteLogoutAll, nil, nil))

	err := laptop.Get(context.Background(), wallet.RouteWalletInfo, nil, nil)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
	err = laptop.Do(context.Background(), apiclient.Request{Method: http.MethodPost, Path: session.RouteRefresh, Anonymous: true}, nil)
	require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
}

func TestWalletDepositFlow(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	ctx := context.Background()

	var before wallet.Info
	require.NoError(t, c.Get(ctx, wallet.RouteWalletInfo, nil, &before))
	require.Equal(t, 4, before.TotalTransactions)
	require.InDelta(t, 2_000_000+100_000-350_000+50_000, before.Balance, 0.001)

	var ps wallet.PaymentSession
	require.NoError(t, c.Post(ctx, wallet.RouteCreateVNPay, wallet.DepositRequest{Amount: 500_000, ReturnURL: "http://localhost:3000/wallet/callback"}, &ps))
	require.Contains(t, ps.PaymentURL, "vnp_SecureHash=")
	require.NotEmpty(t, ps.OrderID)

	var pending wallet.Transaction
	require.NoError(t, c.Get(ctx, wallet.RoutePaymentDetail+ps.OrderID, nil, &pending))
	require.Equal(t, wallet.StatusPending, pending.Status)

	forged := mockapi.SignedVNPayReturn("wrong-secret", ps.OrderID, 500_000, "00")
	err := c.Get(ctx, "/payments/vnpay/return", forged, nil)
	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	var settled wallet.Transaction
	require.NoError(t, c.Get(ctx, "/payments/vnpay/return", mockapi.SignedVNPayReturn(hashSecret, ps.OrderID, 500_000, "00"), &settled))
	require.Equal(t, wallet.StatusCompleted, settled.Status)

	err = c.Get(ctx, "/payments/vnpay/return", mockapi.SignedVNPayReturn(hashSecret, ps.OrderID, 500_000, "00"), nil)
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err), "an order settles only once")

	var after wallet.Info
	require.NoError(t, c.Get(ctx, wallet.RouteWalletInfo, nil, &after))
	require.InDelta(t, before.Balance+500_000, after.Balance, 0.001)

	err = c.Post(ctx, wallet.RouteCreateVNPay, wallet.DepositRequest{Amount: 5_000, ReturnURL: "http://localhost:3000/cb"}, nil)
	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
}

func TestPaymentHistoryPagination(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)

	var page wallet.TransactionPage
	require.NoError(t, c.Get(context.Background(), wallet.RouteHistory, map[string][]string{"page": {"2"}, "limit": {"3"}}, &page))
	require.Len(t, page.Transactions, 1)
	require.Equal(t, 4, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.Page)
}

func TestNotifications(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	api := notifications.NewHTTPAPI(c)
	ctx := context.Background()

	page, err := api.List(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 3)
	require.Equal(t, 2, *page.UnreadCount)

	require.NoError(t, api.MarkAsRead(ctx, page.Notifications[0].ID))
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(api.MarkAsRead(ctx, "missing")))

	require.NoError(t, api.MarkAllAsRead(ctx))
	page, err = api.List(ctx, 1, 20)
	require.NoError(t, err)
	require.Zero(t, *page.UnreadCount)
}

func TestSidebarWritesAreAdminOnlyAndVersioned(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	member := f.newClient(t)
	f.login(t, member, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	memberAPI := sidebar.NewHTTPSidebarAPI(member)
	cfg, err := memberAPI.GetSidebarConfig(ctx)
	require.NoError(t, err)
	_, err = memberAPI.UpdateConfig(ctx, cfg.ID, sidebar.ConfigPatch{Version: cfg.Version})
	require.Equal(t, http.StatusForbidden, apiclient.StatusCode(err))

	admin := f.newClient(t)
	f.login(t, admin, adminEmail, adminPassword)
	adminAPI := sidebar.NewHTTPSidebarAPI(admin)

	items := cfg.Items[:2]
	updated, err := adminAPI.UpdateConfig(ctx, cfg.ID, sidebar.ConfigPatch{Items: items, Version: cfg.Version})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	require.Equal(t, cfg.Version+1, updated.Version)
	require.Len(t, updated.Groups, len(cfg.Groups), "nil groups keep the stored groups")

	_, err = adminAPI.UpdateConfig(ctx, cfg.ID, sidebar.ConfigPatch{Items: cfg.Items, Version: cfg.Version})
	require.Equal(t, http.StatusConflict, apiclient.StatusCode(err))

	_, err = adminAPI.UpdateConfig(ctx, "other", sidebar.ConfigPatch{Version: updated.Version})
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
}

func TestFavorites(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)
	f.login(t, c, mockapi.DemoUserEmail, mockapi.DemoUserPassword)
	api := favorites.NewHTTPAPI(c)
	ctx := context.Background()

	items, err := api.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	saved, err := api.Add(ctx, favorites.Item{ID: "property-7", Type: favorites.TypeProperty, Title: "Villa"})
	require.NoError(t, err)
	require.False(t, saved.AddedAt.IsZero())

	_, err = api.Add(ctx, favorites.Item{ID: "x", Type: "car"})
	require.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))

	require.NoError(t, api.Remove(ctx, "property-7"))
	require.Equal(t, http.StatusNotFound, apiclient.StatusCode(api.Remove(ctx, "property-7")))
}

func TestUnknownRouteAndPreflight(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := http.Get(f.server.URL + mockapi.APIPrefix + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+mockapi.RouteAuthLogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestLoginIsRateLimited(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	var limited bool
	for range 40 {
		err := c.Do(context.Background(), apiclient.Request{
			Method:    http.MethodPost,
			Path:      session.RouteLogin,
			Body:      session.Credentials{Email: "nobody@x.com", Password: "Wrong12345"},
			Anonymous: true,
		}, nil)
		if apiclient.StatusCode(err) == http.StatusTooManyRequests {
			limited = true
			break
		}
		require.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
	}
	require.True(t, limited)
}
