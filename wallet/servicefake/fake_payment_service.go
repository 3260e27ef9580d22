package paymentfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-estate-client/wallet"
)

var _ wallet.PaymentService = (*FakePaymentService)(nil)

// FakePaymentService serves a fixed wallet and transaction history from memory.
type FakePaymentService struct {
	lock         sync.Mutex
	info         wallet.Info
	transactions []wallet.Transaction
	calls        map[string]int
	invalidated  int

	InfoErr    error
	HistoryErr error
	PaymentErr error
	DetailsErr error
	// PaymentURL is returned by CreateVNPayPayment
	PaymentURL string
	Deposits   []wallet.DepositRequest
}

func NewFakePaymentService(info wallet.Info, transactions ...wallet.Transaction) *FakePaymentService {
	return &FakePaymentService{
		info:         info,
		transactions: transactions,
		calls:        make(map[string]int),
		PaymentURL:   "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html?vnp_TxnRef=order-1",
	}
}

func (f *FakePaymentService) SetInfo(info wallet.Info) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.info = info
}

func (f *FakePaymentService) Calls(name string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[name]
}

func (f *FakePaymentService) Invalidations() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.invalidated
}

func (f *FakePaymentService) InvalidateCache() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.invalidated++
}

func (f *FakePaymentService) GetUserWalletInfo(_ context.Context) (*wallet.Info, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["wallet_info"]++
	if f.InfoErr != nil {
		return nil, f.InfoErr
	}
	info := f.info
	return &info, nil
}

func (f *FakePaymentService) GetTransactionHistory(_ context.Context, page, limit int) (*wallet.TransactionPage, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["history"]++
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	start := (page - 1) * limit
	end := start + limit
	if start > len(f.transactions) {
		start = len(f.transactions)
	}
	if end > len(f.transactions) {
		end = len(f.transactions)
	}
	return &wallet.TransactionPage{
		Transactions: append([]wallet.Transaction(nil), f.transactions[start:end]...),
		Pagination:   wallet.Pagination{Page: page, Limit: limit, Total: len(f.transactions)},
	}, nil
}

func (f *FakePaymentService) CreateVNPayPayment(_ context.Context, req wallet.DepositRequest) (*wallet.PaymentSession, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["create_payment"]++
	if f.PaymentErr != nil {
		return nil, f.PaymentErr
	}
	f.Deposits = append(f.Deposits, req)
	return &wallet.PaymentSession{PaymentURL: f.PaymentURL, OrderID: fmt.Sprintf("order-%d", len(f.Deposits))}, nil
}

func (f *FakePaymentService) GetPaymentDetails(_ context.Context, id string) (*wallet.Transaction, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls["details"]++
	if f.DetailsErr != nil {
		return nil, f.DetailsErr
	}
	for _, tx := range f.transactions {
		if tx.ID == id {
			tx := tx
			return &tx, nil
		}
	}
	return nil, fmt.Errorf("transaction %s not found", id)
}
