package wallet_test

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-estate-client/apiclient"
	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/wallet"
	paymentfake "github.com/jrsteele09/go-estate-client/wallet/servicefake"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type authFlag struct{ on atomic.Bool }

func (a *authFlag) IsAuthenticated() bool { return a.on.Load() }

type testFixture struct {
	service    *paymentfake.FakePaymentService
	auth       *authFlag
	store      *wallet.Store
	redirected []string
}

func transactions(n int) []wallet.Transaction {
	txs := make([]wallet.Transaction, n)
	for i := range txs {
		txs[i] = wallet.Transaction{
			ID:        fmt.Sprintf("tx-%02d", i+1),
			Amount:    float64(100000 * (i + 1)),
			Type:      wallet.TransactionDeposit,
			Status:    wallet.StatusCompleted,
			CreatedAt: fixedNow.Add(-time.Duration(i) * time.Hour),
		}
	}
	return txs
}

func setupTestFixture(t *testing.T, txCount int, options ...wallet.StoreOption) *testFixture {
	t.Helper()

	f := &testFixture{
		service: paymentfake.NewFakePaymentService(wallet.Info{Balance: 500000, TotalIncome: 700000, TotalSpending: 200000, TotalTransactions: txCount}, transactions(txCount)...),
		auth:    &authFlag{},
	}
	f.auth.on.Store(true)

	options = append([]wallet.StoreOption{
		wallet.WithNowTime(func() time.Time { return fixedNow }),
		wallet.WithRedirector(wallet.RedirectFunc(func(_ context.Context, url string) error {
			f.redirected = append(f.redirected, url)
			return nil
		})),
	}, options...)

	store, err := wallet.NewStore(f.service, f.auth, options...)
	require.NoError(t, err)
	f.store = store
	return f
}

func TestNewStoreRequiresCollaborators(t *testing.T) {
	_, err := wallet.NewStore(nil, &authFlag{})
	require.Error(t, err)
	_, err = wallet.NewStore(paymentfake.NewFakePaymentService(wallet.Info{}), nil)
	require.Error(t, err)
}

func TestFetchWalletInfoReplacesSnapshot(t *testing.T) {
	f := setupTestFixture(t, 0)
	ctx := context.Background()

	info, err := f.store.FetchWalletInfo(ctx)
	require.NoError(t, err)
	require.Equal(t, float64(500000), info.Balance)
	require.Equal(t, 1, f.service.Invalidations())

	f.service.SetInfo(wallet.Info{Balance: 42})
	_, err = f.store.FetchWalletInfo(ctx)
	require.NoError(t, err)

	s := f.store.Snapshot()
	require.Equal(t, float64(42), s.Info.Balance)
	require.Zero(t, s.Info.TotalIncome, "snapshot must be replaced, not merged")
	require.Equal(t, fixedNow, *s.LastUpdated)
	require.False(t, s.Loading)
	require.Equal(t, 2, f.service.Invalidations())
}

func TestFetchWalletInfoUnauthenticatedIsSkipped(t *testing.T) {
	f := setupTestFixture(t, 0)
	f.auth.on.Store(false)

	_, err := f.store.FetchWalletInfo(context.Background())
	require.ErrorIs(t, err, errs.ErrNotAuthenticated)
	require.Zero(t, f.service.Calls("wallet_info"))
	require.Empty(t, f.store.Snapshot().Error)
}

func TestFetchWalletInfoFailureSetsError(t *testing.T) {
	f := setupTestFixture(t, 0)
	f.service.InfoErr = &apiclient.APIError{Method: http.MethodGet, Path: wallet.RouteWalletInfo, StatusCode: http.StatusInternalServerError, Message: "wallet unavailable"}

	_, err := f.store.FetchWalletInfo(context.Background())
	require.Error(t, err)

	s := f.store.Snapshot()
	require.Equal(t, "wallet unavailable", s.Error)
	require.False(t, s.Loading)
	require.Nil(t, s.Info)
	require.Equal(t, 1, f.service.Calls("wallet_info"), "no automatic retry")
}

func TestFetchTransactionsReplaceThenAppend(t *testing.T) {
	f := setupTestFixture(t, 25)
	ctx := context.Background()

	_, err := f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	s := f.store.Snapshot()
	require.Len(t, s.Transactions, 10)
	require.True(t, s.HasMore)

	_, err = f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 2, Limit: 10})
	require.NoError(t, err)
	s = f.store.Snapshot()
	require.Len(t, s.Transactions, 20)
	require.Equal(t, "tx-11", s.Transactions[10].ID)
	require.Equal(t, 2, s.Page)

	page, err := f.store.LoadMore(ctx)
	require.NoError(t, err)
	require.Len(t, page, 5)
	s = f.store.Snapshot()
	require.Len(t, s.Transactions, 25)
	require.False(t, s.HasMore)

	page, err = f.store.LoadMore(ctx)
	require.NoError(t, err)
	require.Nil(t, page)
	require.Equal(t, 3, f.service.Calls("history"))

	_, err = f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, f.store.Snapshot().Transactions, 10)
}

func TestFetchTransactionsResetReplacesLaterPage(t *testing.T) {
	f := setupTestFixture(t, 25)
	ctx := context.Background()

	_, err := f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	_, err = f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 2, Limit: 10, Reset: true})
	require.NoError(t, err)

	s := f.store.Snapshot()
	require.Len(t, s.Transactions, 10)
	require.Equal(t, "tx-11", s.Transactions[0].ID)
	require.Equal(t, 1, f.service.Invalidations())
}

func TestFetchTransactionsExactMultipleReportsMore(t *testing.T) {
	f := setupTestFixture(t, 10)

	_, err := f.store.FetchTransactions(context.Background(), wallet.TransactionQuery{})
	require.NoError(t, err)
	s := f.store.Snapshot()
	require.Len(t, s.Transactions, 10)
	require.True(t, s.HasMore, "a full page is taken to mean more may follow")
	require.Equal(t, 1, s.Page)
}

func TestDepositRedirectsToCheckout(t *testing.T) {
	f := setupTestFixture(t, 0)

	url, err := f.store.DepositToWallet(context.Background(), wallet.DepositRequest{Amount: 200000, ReturnURL: " https://estate.example/wallet/return "})
	require.NoError(t, err)
	require.Equal(t, f.service.PaymentURL, url)
	require.Equal(t, []string{url}, f.redirected)
	require.Len(t, f.service.Deposits, 1)
	require.Equal(t, "https://estate.example/wallet/return", f.service.Deposits[0].ReturnURL)
	require.False(t, f.store.Snapshot().Loading)
}

func TestDepositValidatesAmount(t *testing.T) {
	f := setupTestFixture(t, 0, wallet.WithMinDeposit(10000))

	for _, amount := range []float64{0, -5, 9999, math.NaN(), math.Inf(1)} {
		_, err := f.store.DepositToWallet(context.Background(), wallet.DepositRequest{Amount: amount})
		require.ErrorIs(t, err, errs.ErrInvalidAmount)
	}
	require.Zero(t, f.service.Calls("create_payment"))
	require.Empty(t, f.redirected)
}

func TestDepositRequiresRedirector(t *testing.T) {
	service := paymentfake.NewFakePaymentService(wallet.Info{})
	auth := &authFlag{}
	auth.on.Store(true)
	store, err := wallet.NewStore(service, auth)
	require.NoError(t, err)

	_, err = store.DepositToWallet(context.Background(), wallet.DepositRequest{Amount: 50000})
	require.ErrorIs(t, err, errs.ErrRedirectRequired)
	require.Zero(t, service.Calls("create_payment"))
}

func TestDepositFailureDoesNotRedirect(t *testing.T) {
	f := setupTestFixture(t, 0)
	f.service.PaymentErr = &apiclient.APIError{Method: http.MethodPost, Path: wallet.RouteCreateVNPay, StatusCode: http.StatusBadRequest, Message: "Amount exceeds limit"}

	_, err := f.store.DepositToWallet(context.Background(), wallet.DepositRequest{Amount: 50000})
	require.Error(t, err)
	require.Empty(t, f.redirected)
	require.Equal(t, "Amount exceeds limit", f.store.Snapshot().Error)
}

func TestGetTransactionDetailsLeavesListUntouched(t *testing.T) {
	f := setupTestFixture(t, 3)
	ctx := context.Background()

	_, err := f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1, Limit: 2})
	require.NoError(t, err)

	tx, err := f.store.GetTransactionDetails(ctx, "tx-03")
	require.NoError(t, err)
	require.Equal(t, "tx-03", tx.ID)
	require.Len(t, f.store.Snapshot().Transactions, 2)

	_, err = f.store.GetTransactionDetails(ctx, " ")
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestResetClearsState(t *testing.T) {
	f := setupTestFixture(t, 5)
	ctx := context.Background()

	_, err := f.store.FetchWalletInfo(ctx)
	require.NoError(t, err)
	_, err = f.store.FetchTransactions(ctx, wallet.TransactionQuery{Page: 1})
	require.NoError(t, err)

	f.store.Reset()
	s := f.store.Snapshot()
	require.Nil(t, s.Info)
	require.Empty(t, s.Transactions)
	require.Zero(t, s.Page)
	require.Equal(t, 2, f.service.Invalidations())
}
