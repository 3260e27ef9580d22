package mockapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-client/favorites"
	"github.com/jrsteele09/go-estate-client/internal/utils"
	"github.com/jrsteele09/go-estate-client/notifications"
	"github.com/jrsteele09/go-estate-client/sidebar"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/jrsteele09/go-estate-client/wallet"
)

const (
	DefaultAdminUsername = "admin"
	SidebarConfigID      = "main"

	DemoUserEmail    = "demo@estate.local"
	DemoUserPassword = "Demo12345"
)

// InitialiseSystem creates the admin account and the sidebar document, and
// when demo data is enabled a demo user with a populated wallet,
// notifications and favorites.
func (s *Server) InitialiseSystem() error {
	admin, err := s.ensureUser(s.config.GetAdminEmail(), s.config.GetAdminPassword(), DefaultAdminUsername, users.RoleAdmin)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin: %w", err)
	}
	s.data.setSidebar(defaultSidebar(s.now()))

	s.logger.Info().Str("email", admin.Email).Msg("admin account ready")

	if !s.config.GetSeedDemoData() {
		return nil
	}
	demo, err := s.ensureUser(DemoUserEmail, DemoUserPassword, "demo", users.RoleUser)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to bootstrap demo user: %w", err)
	}
	s.seedDemoData(demo.ID)
	s.logger.Info().Str("email", demo.Email).Str("password", DemoUserPassword).Msg("demo account ready")
	return nil
}

func (s *Server) ensureUser(email, password, username string, role users.RoleType) (*users.User, error) {
	if existing, err := s.users.GetByEmail(email); err == nil && existing != nil {
		return existing, nil
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[server ensureUser] failed to hash password: %w", err)
	}
	u := &users.User{
		Email:        email,
		Username:     username,
		Role:         role,
		Status:       users.StatusActive,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Upsert(u); err != nil {
		return nil, fmt.Errorf("[server ensureUser] failed to store user: %w", err)
	}
	return u, nil
}

func (s *Server) seedDemoData(userID string) {
	now := s.now()
	ledger := []wallet.Transaction{
		{Amount: 2_000_000, Type: wallet.TransactionDeposit, Description: "Nạp tiền qua VNPay", Method: "VNPAY", CreatedAt: now.Add(-72 * time.Hour)},
		{Amount: 100_000, Type: wallet.TransactionBonus, Description: "Welcome bonus", CreatedAt: now.Add(-71 * time.Hour)},
		{Amount: 350_000, Type: wallet.TransactionPayment, Description: "Post listing fee", CreatedAt: now.Add(-48 * time.Hour)},
		{Amount: 50_000, Type: wallet.TransactionRefund, Description: "Listing fee refund", CreatedAt: now.Add(-24 * time.Hour)},
	}
	for _, tx := range ledger {
		tx.ID = uuid.New().String()
		tx.Status = wallet.StatusCompleted
		s.data.addTransaction(userID, tx)
	}

	for i, n := range []notifications.Notification{
		{Title: "Welcome", Message: "Your account is ready", Type: "system", Read: true},
		{Title: "Deposit completed", Message: "2,000,000 VND was added to your wallet", Type: "payment"},
		{Title: "Listing approved", Message: "Your listing is now public", Type: "post"},
	} {
		n.ID = uuid.New().String()
		n.UserID = userID
		n.CreatedAt = now.Add(time.Duration(i-3) * time.Hour)
		s.data.addNotification(userID, n)
	}

	s.data.addFavorite(userID, favorites.Item{
		ID:       "project-riverside",
		Type:     favorites.TypeProject,
		Title:    "Riverside Residences",
		Location: "Thu Duc, Ho Chi Minh City",
		Slug:     "riverside-residences",
		AddedAt:  now.Add(-12 * time.Hour),
	})
	s.data.addFavorite(userID, favorites.Item{
		ID:      "property-1024",
		Type:    favorites.TypeProperty,
		Title:   "2BR apartment, District 7",
		Price:   utils.Ptr(3_200_000_000.0),
		AddedAt: now.Add(-6 * time.Hour),
	})
}

func defaultSidebar(now time.Time) sidebar.Config {
	staff := []users.RoleType{users.RoleAdmin, users.RoleEmployee}
	admins := []users.RoleType{users.RoleAdmin}
	return sidebar.Config{
		ID:      SidebarConfigID,
		Version: 1,
		Groups: sidebar.NormalizeGroups([]sidebar.Group{
			{ID: "content", Title: "Content", IsVisible: true, AllowedRoles: staff},
			{ID: "system", Title: "System", IsVisible: true, AllowedRoles: admins},
		}),
		Items: sidebar.NormalizeItems([]sidebar.MenuItem{
			{ID: "dashboard", Name: "Dashboard", Href: "/admin", Icon: "home", IsActive: true},
			{ID: "projects", Name: "Projects", Href: "/admin/projects", Icon: "building", IsActive: true, GroupID: "content", Roles: staff},
			{ID: "posts", Name: "Posts", Href: "/admin/posts", Icon: "file", IsActive: true, GroupID: "content", Roles: staff},
			{ID: "developers", Name: "Developers", Href: "/admin/developers", Icon: "users", IsActive: true, GroupID: "content", Roles: staff},
			{ID: "sidebar", Name: "Sidebar", Href: "/admin/sidebar", Icon: "menu", IsActive: true, GroupID: "system", Roles: admins},
			{ID: "settings", Name: "Settings", Href: "/admin/settings", Icon: "settings", IsActive: true, GroupID: "system", Roles: admins},
		}),
		UpdatedAt: &now,
	}
}
