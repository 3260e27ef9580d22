package config

import (
	"strings"
	"time"
)

type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetNotificationCacheTTL() time.Duration
	GetPaymentCacheTTL() time.Duration
	GetTransactionPageSize() int
	GetDepositReturnURL() string
}

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL returns the backend origin. The web front-end variable names are
// honoured first so the same .env file can be shared.
func (Client) GetAPIBaseURL() string {
	url := GetFirstEnv("http://localhost:8080/api", "NEXT_PUBLIC_API_URL", "NEXT_PUBLIC_API_BASE_URL", "API_BASE_URL")
	return strings.TrimRight(url, "/")
}

func (Client) GetRequestTimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 30*time.Second)
}

func (Client) GetNotificationCacheTTL() time.Duration {
	return GetEnvDuration("NOTIFICATION_CACHE_TTL", 5*time.Second)
}

func (Client) GetPaymentCacheTTL() time.Duration {
	return GetEnvDuration("PAYMENT_CACHE_TTL", 30*time.Second)
}

func (Client) GetTransactionPageSize() int {
	return GetEnvInt("TRANSACTION_PAGE_SIZE", 10)
}

func (Client) GetDepositReturnURL() string {
	return GetEnv("DEPOSIT_RETURN_URL", "http://localhost:3000/user/wallet/callback")
}
