package mockapi

import "github.com/jrsteele09/go-estate-client/users"

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PUT "+RouteAuthProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogoutAll, ChainMiddleware(s.LogoutAllHandler(), s.APIMiddleware(s.RequireAuth)...))

	// PAYMENTS
	s.RegisterRouteFunc("GET "+RouteWalletInfo, ChainMiddleware(s.WalletInfoHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RoutePaymentHistory, ChainMiddleware(s.PaymentHistoryHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("POST "+RouteVNPayCreate, ChainMiddleware(s.CreateVNPayPaymentHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteVNPayReturn, ChainMiddleware(s.VNPayReturnHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RoutePaymentDetail, ChainMiddleware(s.PaymentDetailHandler(), s.APIMiddleware(s.RequireAuth)...))

	// NOTIFICATIONS
	s.RegisterRouteFunc("GET "+RouteNotifications, ChainMiddleware(s.ListNotificationsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PUT "+RouteNotificationRead, ChainMiddleware(s.MarkNotificationReadHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PUT "+RouteNotificationReadAll, ChainMiddleware(s.MarkAllNotificationsReadHandler(), s.APIMiddleware(s.RequireAuth)...))

	// SIDEBAR
	s.RegisterRouteFunc("GET "+RouteSidebarConfig, ChainMiddleware(s.SidebarConfigHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PUT "+RouteSidebarConfigUpdate, ChainMiddleware(s.UpdateSidebarConfigHandler(), s.APIMiddleware(s.RequireAuth, s.RequireRole(users.RoleAdmin))...))

	// FAVORITES
	s.RegisterRouteFunc("GET "+RouteFavorites, ChainMiddleware(s.ListFavoritesHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("POST "+RouteFavorites, ChainMiddleware(s.AddFavoriteHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("DELETE "+RouteFavoriteDelete, ChainMiddleware(s.RemoveFavoriteHandler(), s.APIMiddleware(s.RequireAuth)...))

	// Browser preflight for every API route
	s.RegisterRouteFunc("OPTIONS "+APIPrefix+"/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc(APIPrefix+"/", ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))
}
