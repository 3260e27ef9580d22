// Package wallet keeps the user's wallet snapshot and transaction history in
// sync with the payment backend.
package wallet

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const DefaultPageSize = 10

// Authenticator reports whether a session is active. session.Store satisfies it.
type Authenticator interface {
	IsAuthenticated() bool
}

// Redirector sends the user to an external checkout page.
type Redirector interface {
	Redirect(ctx context.Context, url string) error
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func(ctx context.Context, url string) error

func (f RedirectFunc) Redirect(ctx context.Context, url string) error {
	return f(ctx, url)
}

type State struct {
	Info                *Info
	Transactions        []Transaction
	Page                int
	HasMore             bool
	Loading             bool
	TransactionsLoading bool
	Error               string
	LastUpdated         *time.Time
}

type Store struct {
	service    PaymentService
	auth       Authenticator
	redirector Redirector
	logger     zerolog.Logger
	nowFunc    func() time.Time
	pageSize   int
	minDeposit float64

	lock  sync.RWMutex
	state State
}

type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithRedirector(r Redirector) StoreOption {
	return func(s *Store) {
		s.redirector = r
	}
}

func WithPageSize(size int) StoreOption {
	return func(s *Store) {
		if size > 0 {
			s.pageSize = size
		}
	}
}

// WithMinDeposit rejects deposits below min before any network call.
func WithMinDeposit(min float64) StoreOption {
	return func(s *Store) {
		s.minDeposit = min
	}
}

func NewStore(service PaymentService, auth Authenticator, options ...StoreOption) (*Store, error) {
	if service == nil {
		return nil, errors.New("[NewStore] PaymentService is required")
	}
	if auth == nil {
		return nil, errors.New("[NewStore] Authenticator is required")
	}
	s := &Store{
		service:  service,
		auth:     auth,
		logger:   zerolog.Nop(),
		nowFunc:  time.Now,
		pageSize: DefaultPageSize,
		state:    State{HasMore: true},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Snapshot() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	snap := s.state
	if s.state.Info != nil {
		info := *s.state.Info
		snap.Info = &info
	}
	snap.Transactions = append([]Transaction(nil), s.state.Transactions...)
	if s.state.LastUpdated != nil {
		t := *s.state.LastUpdated
		snap.LastUpdated = &t
	}
	return snap
}

func (s *Store) update(fn func(st *State)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	fn(&s.state)
}

func (s *Store) ClearError() {
	s.update(func(st *State) {
		st.Error = ""
	})
}

// Reset drops all wallet state and cached responses. Called on logout.
func (s *Store) Reset() {
	s.service.InvalidateCache()
	s.update(func(st *State) {
		*st = State{HasMore: true}
	})
}

// FetchWalletInfo always reads through to the backend and replaces the
// snapshot wholesale.
func (s *Store) FetchWalletInfo(ctx context.Context) (*Info, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}

	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	s.service.InvalidateCache()
	info, err := s.service.GetUserWalletInfo(ctx)
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "[Store.FetchWalletInfo]"), err, "failed to load wallet", func(st *State) {
			st.Loading = false
		})
	}

	now := s.nowFunc()
	s.update(func(st *State) {
		copied := *info
		st.Info = &copied
		st.Loading = false
		st.LastUpdated = &now
	})
	return info, nil
}

// FetchTransactions loads one page of history. Page 1, or Reset, replaces the
// list; any later page is appended. Reset also bypasses the read cache.
func (s *Store) FetchTransactions(ctx context.Context, q TransactionQuery) ([]Transaction, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = s.pageSize
	}

	if q.Reset {
		s.service.InvalidateCache()
	}

	s.update(func(st *State) {
		st.TransactionsLoading = true
		st.Error = ""
	})

	page, err := s.service.GetTransactionHistory(ctx, q.Page, q.Limit)
	if err != nil {
		return nil, s.fail(errors.Wrapf(err, "[Store.FetchTransactions] page %d", q.Page), err, "failed to load transactions", func(st *State) {
			st.TransactionsLoading = false
		})
	}

	replace := q.Reset || q.Page == 1
	s.update(func(st *State) {
		if replace {
			st.Transactions = append([]Transaction(nil), page.Transactions...)
		} else {
			st.Transactions = append(st.Transactions, page.Transactions...)
		}
		st.Page = q.Page
		// A full page is taken to mean there may be more.
		st.HasMore = len(page.Transactions) >= q.Limit
		st.TransactionsLoading = false
	})
	return append([]Transaction(nil), page.Transactions...), nil
}

// LoadMore fetches the page after the last loaded one when more are expected.
func (s *Store) LoadMore(ctx context.Context) ([]Transaction, error) {
	s.lock.RLock()
	next, more := s.state.Page+1, s.state.HasMore
	s.lock.RUnlock()
	if !more {
		return nil, nil
	}
	return s.FetchTransactions(ctx, TransactionQuery{Page: next, Limit: s.pageSize})
}

// DepositToWallet creates a VNPay checkout and hands its URL to the
// redirector. The returned URL is the checkout page.
func (s *Store) DepositToWallet(ctx context.Context, req DepositRequest) (string, error) {
	if !s.auth.IsAuthenticated() {
		return "", errs.ErrNotAuthenticated
	}
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) || req.Amount < s.minDeposit {
		err := errs.Wrapf(errs.ErrInvalidAmount, "[Store.DepositToWallet] amount %.0f", req.Amount)
		s.update(func(st *State) {
			st.Error = "invalid deposit amount"
		})
		return "", err
	}
	if s.redirector == nil {
		return "", errs.ErrRedirectRequired
	}
	req.ReturnURL = strings.TrimSpace(req.ReturnURL)

	s.update(func(st *State) {
		st.Loading = true
		st.Error = ""
	})

	session, err := s.service.CreateVNPayPayment(ctx, req)
	if err != nil {
		return "", s.fail(errors.Wrap(err, "[Store.DepositToWallet]"), err, "failed to create payment", func(st *State) {
			st.Loading = false
		})
	}
	s.update(func(st *State) {
		st.Loading = false
	})

	s.logger.Info().Str("order_id", session.OrderID).Float64("amount", req.Amount).Msg("redirecting to payment gateway")
	if err := s.redirector.Redirect(ctx, session.PaymentURL); err != nil {
		return session.PaymentURL, errors.Wrap(err, "[Store.DepositToWallet] redirect")
	}
	return session.PaymentURL, nil
}

// GetTransactionDetails looks a single transaction up without touching the
// loaded list.
func (s *Store) GetTransactionDetails(ctx context.Context, id string) (*Transaction, error) {
	if !s.auth.IsAuthenticated() {
		return nil, errs.ErrNotAuthenticated
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.Wrap(errs.ErrInvalidRequest, "[Store.GetTransactionDetails] id is required")
	}
	tx, err := s.service.GetPaymentDetails(ctx, id)
	if err != nil {
		return nil, s.fail(errors.Wrapf(err, "[Store.GetTransactionDetails] %s", id), err, "failed to load transaction", nil)
	}
	return tx, nil
}

func (s *Store) fail(wrapped, cause error, fallback string, fn func(st *State)) error {
	msg := errs.Message(cause, fallback)
	s.update(func(st *State) {
		if fn != nil {
			fn(st)
		}
		st.Error = msg
	})
	s.logger.Warn().Err(wrapped).Msg("wallet request failed")
	return wrapped
}
