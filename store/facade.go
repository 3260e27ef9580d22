// Package store composes the session, wallet, notification, sidebar and
// favorites stores behind one facade. The facade skips account actions when
// nobody is logged in, reports failures as toasts, and tears down per-user
// state on logout or when the backend rejects the token.
package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/jrsteele09/go-estate-client/favorites"
	"github.com/jrsteele09/go-estate-client/internal/config"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/notifications"
	"github.com/jrsteele09/go-estate-client/session"
	"github.com/jrsteele09/go-estate-client/sidebar"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/jrsteele09/go-estate-client/wallet"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	msgSessionExpired = "Your session has expired, please log in again"
	msgNetwork        = "Cannot reach the server, please check your connection"
	msgForbidden      = "You do not have permission to do that"
)

type Facade struct {
	Session       *session.Store
	Wallet        *wallet.Store
	Notifications *notifications.Store
	Sidebar       *sidebar.Store
	Favorites     *favorites.Store

	client           *apiclient.Client
	toaster          Toaster
	logger           zerolog.Logger
	depositReturnURL string
}

type settings struct {
	logger     zerolog.Logger
	toaster    Toaster
	redirector wallet.Redirector
	httpClient *http.Client
}

type Option func(*settings)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func WithToaster(t Toaster) Option {
	return func(s *settings) {
		s.toaster = t
	}
}

// WithRedirector sets where deposit checkouts are sent.
func WithRedirector(r wallet.Redirector) Option {
	return func(s *settings) {
		s.redirector = r
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// New wires every store against the backend named by cfg.
func New(cfg config.ClientConfig, options ...Option) (*Facade, error) {
	set := settings{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(&set)
	}
	if set.toaster == nil {
		set.toaster = NewLogToaster(set.logger)
	}

	clientOptions := []apiclient.Option{apiclient.WithLogger(set.logger)}
	if set.httpClient != nil {
		clientOptions = append(clientOptions, apiclient.WithHTTPClient(set.httpClient))
	}
	clientOptions = append(clientOptions, apiclient.WithTimeout(cfg.GetRequestTimeout()))
	client, err := apiclient.New(cfg.GetAPIBaseURL(), clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] apiclient.New")
	}

	sessionStore, err := session.NewStore(session.NewHTTPAuthAPI(client), session.WithLogger(set.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] session.NewStore")
	}
	client.SetTokenSource(sessionStore)

	walletOptions := []wallet.StoreOption{wallet.WithLogger(set.logger), wallet.WithPageSize(cfg.GetTransactionPageSize())}
	if set.redirector != nil {
		walletOptions = append(walletOptions, wallet.WithRedirector(set.redirector))
	}
	walletStore, err := wallet.NewStore(wallet.NewHTTPPaymentService(client, cfg.GetPaymentCacheTTL()), sessionStore, walletOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] wallet.NewStore")
	}

	notificationStore, err := notifications.NewStore(notifications.NewHTTPAPI(client), sessionStore,
		notifications.WithLogger(set.logger), notifications.WithTTL(cfg.GetNotificationCacheTTL()))
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] notifications.NewStore")
	}

	sidebarStore, err := sidebar.NewStore(sidebar.NewHTTPSidebarAPI(client), sidebar.WithLogger(set.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] sidebar.NewStore")
	}

	favoriteStore, err := favorites.NewStore(favorites.NewHTTPAPI(client), sessionStore, favorites.WithLogger(set.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[store.New] favorites.NewStore")
	}

	return &Facade{
		Session:          sessionStore,
		Wallet:           walletStore,
		Notifications:    notificationStore,
		Sidebar:          sidebarStore,
		Favorites:        favoriteStore,
		client:           client,
		toaster:          set.toaster,
		logger:           set.logger,
		depositReturnURL: cfg.GetDepositReturnURL(),
	}, nil
}

// Client returns the HTTP client shared by every store.
func (f *Facade) Client() *apiclient.Client {
	return f.client
}

func (f *Facade) requireSession() error {
	if !f.Session.IsAuthenticated() {
		return errs.ErrNotAuthenticated
	}
	return nil
}

func (f *Facade) requireAdmin() error {
	if err := f.requireSession(); err != nil {
		return err
	}
	if !f.Session.HasRole(users.RoleAdmin) {
		f.toaster.Error(msgForbidden)
		return errs.ErrForbidden
	}
	return nil
}

// report turns a store failure into a toast. Skipped actions stay silent and
// a rejected token ends the session.
func (f *Facade) report(err error, fallback string) error {
	switch {
	case err == nil:
		return nil
	case errs.Is(err, errs.ErrNotAuthenticated):
		return err
	case errs.Is(err, errs.ErrSessionExpired), apiclient.IsAuthError(err):
		f.Session.ExpireSession()
		f.resetUserState()
		f.toaster.Error(msgSessionExpired)
		if errs.Is(err, errs.ErrSessionExpired) {
			return err
		}
		return errs.Wrapf(errs.ErrSessionExpired, "%v", err)
	}
	f.toaster.Error(toastMessage(err, fallback))
	return err
}

func toastMessage(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errs.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errs.Is(err, errs.ErrTransport) {
		return msgNetwork
	}
	return fallback
}

func (f *Facade) resetUserState() {
	f.Wallet.Reset()
	f.Notifications.Reset()
	f.Favorites.Reset()
}

// InitializeAuth restores the session from the refresh cookie once. Failure is
// the normal logged-out start and is never toasted.
func (f *Facade) InitializeAuth(ctx context.Context) bool {
	return f.Session.InitializeAuth(ctx)
}

func (f *Facade) Login(ctx context.Context, email, password string) (*users.User, error) {
	user, err := f.Session.Login(ctx, session.Credentials{Email: email, Password: password})
	if err != nil {
		f.toaster.Error(toastMessage(err, "Login failed"))
		return nil, err
	}
	f.toaster.Success(fmt.Sprintf("Welcome back, %s", user.Username))
	return user, nil
}

func (f *Facade) Register(ctx context.Context, reg session.Registration) (*users.User, error) {
	user, err := f.Session.Register(ctx, reg)
	if err != nil {
		f.toaster.Error(toastMessage(err, "Registration failed"))
		return nil, err
	}
	f.toaster.Success("Account created")
	return user, nil
}

// Logout ends the session and clears every per-user store. A failed server
// call is logged but the user is logged out locally regardless.
func (f *Facade) Logout(ctx context.Context) error {
	err := f.Session.Logout(ctx)
	f.resetUserState()
	if err != nil {
		f.logger.Warn().Err(err).Msg("logout")
	}
	f.toaster.Success("Logged out")
	return err
}

func (f *Facade) LogoutAll(ctx context.Context) error {
	err := f.Session.LogoutAll(ctx)
	f.resetUserState()
	if err != nil {
		f.logger.Warn().Err(err).Msg("logout all")
	}
	f.toaster.Success("Logged out of all devices")
	return err
}

func (f *Facade) GetProfile(ctx context.Context) (*users.User, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	user, err := f.Session.GetProfile(ctx)
	return user, f.report(err, "Failed to load profile")
}

func (f *Facade) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.User, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	user, err := f.Session.UpdateProfile(ctx, update)
	if err != nil {
		return nil, f.report(err, "Failed to update profile")
	}
	f.toaster.Success("Profile updated")
	return user, nil
}

func (f *Facade) FetchWalletInfo(ctx context.Context) (*wallet.Info, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	info, err := f.Wallet.FetchWalletInfo(ctx)
	return info, f.report(err, "Failed to load wallet")
}

func (f *Facade) FetchTransactions(ctx context.Context, q wallet.TransactionQuery) ([]wallet.Transaction, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	txs, err := f.Wallet.FetchTransactions(ctx, q)
	return txs, f.report(err, "Failed to load transactions")
}

func (f *Facade) LoadMoreTransactions(ctx context.Context) ([]wallet.Transaction, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	txs, err := f.Wallet.LoadMore(ctx)
	return txs, f.report(err, "Failed to load transactions")
}

// DepositToWallet starts a VNPay deposit. The configured return URL is used
// when req has none.
func (f *Facade) DepositToWallet(ctx context.Context, req wallet.DepositRequest) (string, error) {
	if err := f.requireSession(); err != nil {
		return "", err
	}
	if req.ReturnURL == "" {
		req.ReturnURL = f.depositReturnURL
	}
	url, err := f.Wallet.DepositToWallet(ctx, req)
	if err != nil {
		if errs.Is(err, errs.ErrInvalidAmount) {
			f.toaster.Error("Please enter a valid amount")
			return "", err
		}
		return "", f.report(err, "Failed to create payment")
	}
	f.toaster.Success("Redirecting to payment gateway")
	return url, nil
}

func (f *Facade) GetTransactionDetails(ctx context.Context, id string) (*wallet.Transaction, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	tx, err := f.Wallet.GetTransactionDetails(ctx, id)
	return tx, f.report(err, "Failed to load transaction")
}

func (f *Facade) FetchNotifications(ctx context.Context, force bool) ([]notifications.Notification, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	list, err := f.Notifications.FetchNotifications(ctx, force)
	return list, f.report(err, "Failed to load notifications")
}

func (f *Facade) FetchNotificationPage(ctx context.Context, page int) ([]notifications.Notification, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	list, err := f.Notifications.FetchPage(ctx, page)
	return list, f.report(err, "Failed to load notifications")
}

func (f *Facade) MarkNotificationAsRead(ctx context.Context, id string) error {
	if err := f.requireSession(); err != nil {
		return err
	}
	return f.report(f.Notifications.MarkAsRead(ctx, id), "Failed to update notification")
}

func (f *Facade) MarkAllNotificationsAsRead(ctx context.Context) error {
	if err := f.requireSession(); err != nil {
		return err
	}
	if err := f.Notifications.MarkAllAsRead(ctx); err != nil {
		return f.report(err, "Failed to update notifications")
	}
	f.toaster.Success("All notifications marked as read")
	return nil
}

func (f *Facade) FetchSidebarConfig(ctx context.Context) (*sidebar.Config, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	cfg, err := f.Sidebar.FetchSidebarConfig(ctx)
	return cfg, f.report(err, "Failed to load menu")
}

// VisibleSidebarItems filters the menu for the current user's role.
func (f *Facade) VisibleSidebarItems() []sidebar.MenuItem {
	user := f.Session.User()
	if user == nil {
		return nil
	}
	return f.Sidebar.VisibleItems(user.Role)
}

func (f *Facade) SidebarSections() []sidebar.Section {
	user := f.Session.User()
	if user == nil {
		return nil
	}
	return f.Sidebar.Sections(user.Role)
}

func (f *Facade) sidebarWrite(ctx context.Context, write func(context.Context) (*sidebar.Config, error)) (*sidebar.Config, error) {
	if err := f.requireAdmin(); err != nil {
		return nil, err
	}
	cfg, err := write(ctx)
	if err != nil {
		if errs.Is(err, errs.ErrConflict) {
			f.toaster.Error("The menu was changed by someone else and has been reloaded")
			return nil, err
		}
		return nil, f.report(err, "Failed to save menu")
	}
	f.toaster.Success("Menu saved")
	return cfg, nil
}

func (f *Facade) UpdateSidebarConfig(ctx context.Context, patch sidebar.ConfigPatch) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.UpdateSidebarConfig(ctx, patch)
	})
}

func (f *Facade) UpdateSidebarItem(ctx context.Context, id string, update sidebar.ItemUpdate) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.UpdateItem(ctx, id, update)
	})
}

func (f *Facade) AddSidebarItem(ctx context.Context, item sidebar.MenuItem) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.AddItem(ctx, item)
	})
}

func (f *Facade) DeleteSidebarItem(ctx context.Context, id string) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.DeleteItem(ctx, id)
	})
}

func (f *Facade) ReorderSidebarItems(ctx context.Context, ids []string) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.ReorderItems(ctx, ids)
	})
}

func (f *Facade) AddSidebarGroup(ctx context.Context, group sidebar.Group) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.AddGroup(ctx, group)
	})
}

func (f *Facade) UpdateSidebarGroup(ctx context.Context, id string, update sidebar.GroupUpdate) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.UpdateGroup(ctx, id, update)
	})
}

func (f *Facade) DeleteSidebarGroup(ctx context.Context, id string) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.DeleteGroup(ctx, id)
	})
}

func (f *Facade) ReorderSidebarGroups(ctx context.Context, ids []string) (*sidebar.Config, error) {
	return f.sidebarWrite(ctx, func(ctx context.Context) (*sidebar.Config, error) {
		return f.Sidebar.ReorderGroups(ctx, ids)
	})
}

func (f *Facade) FetchFavorites(ctx context.Context) ([]favorites.Item, error) {
	if err := f.requireSession(); err != nil {
		return nil, err
	}
	items, err := f.Favorites.Fetch(ctx)
	return items, f.report(err, "Failed to load favorites")
}

// ToggleFavorite adds or removes item and reports whether it is now a favorite.
func (f *Facade) ToggleFavorite(ctx context.Context, item favorites.Item) (bool, error) {
	if err := f.requireSession(); err != nil {
		return false, err
	}
	on, err := f.Favorites.Toggle(ctx, item)
	if err != nil {
		return on, f.report(err, "Failed to update favorites")
	}
	if on {
		f.toaster.Success("Added to favorites")
	} else {
		f.toaster.Success("Removed from favorites")
	}
	return on, nil
}

func (f *Facade) IsFavorite(id string) bool {
	return f.Favorites.IsFavorite(id)
}

// LoadAccount fetches the wallet, first transaction page, notifications and
// favorites for the logged-in user. It stops at the first failure.
func (f *Facade) LoadAccount(ctx context.Context) error {
	if err := f.requireSession(); err != nil {
		return err
	}
	if _, err := f.FetchWalletInfo(ctx); err != nil {
		return err
	}
	if _, err := f.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1, Reset: true}); err != nil {
		return err
	}
	if _, err := f.FetchNotifications(ctx, false); err != nil {
		return err
	}
	_, err := f.FetchFavorites(ctx)
	return err
}
