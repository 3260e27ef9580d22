package wallet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jrsteele09/go-estate-client/apiclient"
	"github.com/pkg/errors"
)

// Backend payment routes
const (
	RouteWalletInfo    = "/payments/wallet-info"
	RouteHistory       = "/payments/history"
	RouteCreateVNPay   = "/payments/vnpay/create"
	RoutePaymentDetail = "/payments/" // + id
)

const (
	walletInfoKey    = "wallet-info"
	defaultCacheSize = 64
)

// PaymentService is the backend collaborator of the wallet store.
type PaymentService interface {
	GetUserWalletInfo(ctx context.Context) (*Info, error)
	GetTransactionHistory(ctx context.Context, page, limit int) (*TransactionPage, error)
	CreateVNPayPayment(ctx context.Context, req DepositRequest) (*PaymentSession, error)
	GetPaymentDetails(ctx context.Context, id string) (*Transaction, error)
	// InvalidateCache drops every cached read so the next one hits the backend.
	InvalidateCache()
}

type httpPaymentService struct {
	client *apiclient.Client
	cache  *expirable.LRU[string, any]
}

var _ PaymentService = (*httpPaymentService)(nil)

// NewHTTPPaymentService returns a PaymentService whose reads are cached for
// cacheTTL. A zero TTL disables caching.
func NewHTTPPaymentService(client *apiclient.Client, cacheTTL time.Duration) PaymentService {
	s := &httpPaymentService{client: client}
	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, any](defaultCacheSize, nil, cacheTTL)
	}
	return s
}

func (s *httpPaymentService) cached(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *httpPaymentService) remember(key string, v any) {
	if s.cache != nil {
		s.cache.Add(key, v)
	}
}

func (s *httpPaymentService) InvalidateCache() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *httpPaymentService) GetUserWalletInfo(ctx context.Context) (*Info, error) {
	if v, ok := s.cached(walletInfoKey); ok {
		info := v.(Info)
		return &info, nil
	}
	var info Info
	if err := s.client.Get(ctx, RouteWalletInfo, nil, &info); err != nil {
		return nil, errors.Wrap(err, "[PaymentService.GetUserWalletInfo]")
	}
	s.remember(walletInfoKey, info)
	return &info, nil
}

func (s *httpPaymentService) GetTransactionHistory(ctx context.Context, page, limit int) (*TransactionPage, error) {
	key := fmt.Sprintf("history:%d:%d", page, limit)
	if v, ok := s.cached(key); ok {
		p := v.(TransactionPage)
		p.Transactions = append([]Transaction(nil), p.Transactions...)
		return &p, nil
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var p TransactionPage
	if err := s.client.Get(ctx, RouteHistory, query, &p); err != nil {
		return nil, errors.Wrap(err, "[PaymentService.GetTransactionHistory]")
	}
	s.remember(key, TransactionPage{Transactions: append([]Transaction(nil), p.Transactions...), Pagination: p.Pagination})
	return &p, nil
}

func (s *httpPaymentService) CreateVNPayPayment(ctx context.Context, req DepositRequest) (*PaymentSession, error) {
	var session PaymentSession
	if err := s.client.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: RouteCreateVNPay, Body: req}, &session); err != nil {
		return nil, errors.Wrap(err, "[PaymentService.CreateVNPayPayment]")
	}
	if session.PaymentURL == "" {
		return nil, errors.New("[PaymentService.CreateVNPayPayment] backend returned no payment URL")
	}
	// The pending deposit changes the history.
	s.InvalidateCache()
	return &session, nil
}

func (s *httpPaymentService) GetPaymentDetails(ctx context.Context, id string) (*Transaction, error) {
	var tx Transaction
	if err := s.client.Get(ctx, RoutePaymentDetail+url.PathEscape(id), nil, &tx); err != nil {
		return nil, errors.Wrap(err, "[PaymentService.GetPaymentDetails]")
	}
	return &tx, nil
}
