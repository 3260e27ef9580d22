package mockapi

const (
	APIPrefix = "/api"

	RouteAuthLogin     = APIPrefix + "/auth/login"
	RouteAuthRegister  = APIPrefix + "/auth/register"
	RouteAuthRefresh   = APIPrefix + "/auth/refresh"
	RouteAuthProfile   = APIPrefix + "/auth/profile"
	RouteAuthLogout    = APIPrefix + "/auth/logout"
	RouteAuthLogoutAll = APIPrefix + "/auth/logout-all"

	RouteWalletInfo     = APIPrefix + "/payments/wallet-info"
	RoutePaymentHistory = APIPrefix + "/payments/history"
	RouteVNPayCreate    = APIPrefix + "/payments/vnpay/create"
	RouteVNPayReturn    = APIPrefix + "/payments/vnpay/return"
	RoutePaymentDetail  = APIPrefix + "/payments/{id}"

	RouteNotifications       = APIPrefix + "/notifications"
	RouteNotificationRead    = APIPrefix + "/notifications/{id}/read"
	RouteNotificationReadAll = APIPrefix + "/notifications/read-all"

	RouteSidebarConfig       = APIPrefix + "/sidebar/config"
	RouteSidebarConfigUpdate = APIPrefix + "/sidebar/config/{id}"

	RouteFavorites      = APIPrefix + "/favorites"
	RouteFavoriteDelete = APIPrefix + "/favorites/{id}"
)
