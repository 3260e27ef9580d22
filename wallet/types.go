package wallet

import "time"

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionPayment    TransactionType = "PAYMENT"
	TransactionRefund     TransactionType = "REFUND"
	TransactionBonus      TransactionType = "BONUS"
)

// Credit reports whether the transaction adds to the balance.
func (t TransactionType) Credit() bool {
	return t == TransactionDeposit || t == TransactionRefund || t == TransactionBonus
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

// Info is a point-in-time snapshot of the wallet. It is always replaced as a
// whole, never merged.
type Info struct {
	Balance           float64    `json:"balance"`
	TotalIncome       float64    `json:"totalIncome"`
	TotalSpending     float64    `json:"totalSpending"`
	BonusEarned       float64    `json:"bonusEarned"`
	LastTransaction   *time.Time `json:"lastTransaction,omitempty"`
	TotalTransactions int        `json:"totalTransactions"`
}

type Transaction struct {
	ID          string            `json:"id"`
	Amount      float64           `json:"amount"`
	Type        TransactionType   `json:"type"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	OrderID     string            `json:"orderId,omitempty"`
	Method      string            `json:"method,omitempty"`
	Reference   string            `json:"reference,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// TransactionPage is one page of the transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

type TransactionQuery struct {
	Page  int
	Limit int
	// Reset replaces the loaded list even when Page > 1.
	Reset bool
}

type DepositRequest struct {
	Amount    float64 `json:"amount"`
	ReturnURL string  `json:"returnUrl"`
	OrderInfo string  `json:"orderInfo,omitempty"`
}

// PaymentSession is the provider checkout created for a deposit.
type PaymentSession struct {
	PaymentURL string `json:"paymentUrl"`
	OrderID    string `json:"orderId"`
}
