package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendConfig configures the in-memory development backend.
type BackendConfig interface {
	GetPort() string
	GetTokenSecret() string
	GetIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetRefreshCookieName() string
	GetCookieSecure() bool
	GetPaymentGatewayURL() string
	GetPaymentHashSecret() string
	GetPaymentTerminalCode() string
	GetAllowedOrigins() []string
	GetAdminEmail() string
	GetAdminPassword() string
	GetSeedDemoData() bool
	GetAuthRateLimit() float64
	GetAuthRateBurst() int
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetPort() string {
	port := GetEnv("PORT", "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (Backend) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "dev-secret-change-me")
}

func (Backend) GetIssuer() string {
	return GetEnv("TOKEN_ISSUER", "estate-dev-backend")
}

func (Backend) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (Backend) GetRefreshTokenExpiry() time.Duration {
	return GetEnvDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func (Backend) GetRefreshTokenLength() int {
	return 32 // 256 bits
}

func (Backend) GetRefreshCookieName() string {
	return GetEnv("REFRESH_COOKIE_NAME", "refreshToken")
}

func (Backend) GetCookieSecure() bool {
	return GetEnvBool("COOKIE_SECURE", false)
}

func (Backend) GetPaymentGatewayURL() string {
	return GetEnv("VNPAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
}

func (Backend) GetPaymentTerminalCode() string {
	return GetEnv("VNPAY_TMN_CODE", "ESTATEDEV")
}

func (Backend) GetPaymentHashSecret() string {
	return GetEnv("VNPAY_HASH_SECRET", "dev-vnpay-secret")
}

// GetAllowedOrigins returns the browser origins allowed to call the backend
// with credentials.
func (Backend) GetAllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func (Backend) GetAdminEmail() string {
	return GetEnv("ADMIN_EMAIL", "admin@estate.local")
}

func (Backend) GetAdminPassword() string {
	return GetEnv("ADMIN_PASSWORD", "Admin12345")
}

func (Backend) GetSeedDemoData() bool {
	return GetEnvBool("SEED_DEMO_DATA", true)
}

// GetAuthRateLimit is the sustained number of login, register and refresh
// requests per second allowed from one client IP.
func (Backend) GetAuthRateLimit() float64 {
	return float64(GetEnvInt("AUTH_RATE_LIMIT", 5))
}

func (Backend) GetAuthRateBurst() int {
	return GetEnvInt("AUTH_RATE_BURST", 20)
}
