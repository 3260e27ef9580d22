package mockapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-estate-client/wallet"
)

const (
	minDepositAmount   = 10_000
	maxHistoryPageSize = 100
)

// formatVNPayAmount encodes amount in the gateway's minor units (x100).
func formatVNPayAmount(amount float64) string {
	return strconv.FormatInt(int64(amount*100), 10)
}

func (s *Server) WalletInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, s.data.walletInfo(userIDFrom(r)), "")
	}
}

func (s *Server) PaymentHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pageParams(r, wallet.DefaultPageSize, maxHistoryPageSize)
		all := s.data.transactions(userIDFrom(r))
		start, end := pageBounds(len(all), page, limit)
		writeData(w, http.StatusOK, wallet.TransactionPage{
			Transactions: all[start:end],
			Pagination:   wallet.Pagination{Page: page, Limit: limit, Total: len(all)},
		}, "")
	}
}

// CreateVNPayPaymentHandler records a pending deposit and returns the signed
// gateway URL the client should redirect to.
func (s *Server) CreateVNPayPaymentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wallet.DepositRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Amount < minDepositAmount {
			writeError(w, http.StatusBadRequest, "Minimum deposit amount is 10,000 VND")
			return
		}
		returnURL, err := url.Parse(strings.TrimSpace(req.ReturnURL))
		if err != nil || !returnURL.IsAbs() {
			writeError(w, http.StatusBadRequest, "Invalid return URL")
			return
		}
		orderInfo := strings.TrimSpace(req.OrderInfo)
		if orderInfo == "" {
			orderInfo = "Nap tien vao vi"
		}

		now := s.now()
		orderID := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
		s.data.addTransaction(userIDFrom(r), wallet.Transaction{
			ID:          uuid.New().String(),
			Amount:      req.Amount,
			Type:        wallet.TransactionDeposit,
			Description: orderInfo,
			Status:      wallet.StatusPending,
			CreatedAt:   now,
			OrderID:     orderID,
			Method:      "VNPAY",
		})

		params := url.Values{}
		params.Set("vnp_Version", vnpVersion)
		params.Set("vnp_Command", "pay")
		params.Set("vnp_TmnCode", s.config.GetPaymentTerminalCode())
		params.Set("vnp_Amount", formatVNPayAmount(req.Amount))
		params.Set("vnp_CurrCode", "VND")
		params.Set("vnp_TxnRef", orderID)
		params.Set("vnp_OrderInfo", orderInfo)
		params.Set("vnp_OrderType", "other")
		params.Set("vnp_Locale", "vn")
		params.Set("vnp_ReturnUrl", returnURL.String())
		params.Set("vnp_IpAddr", clientIP(r))
		params.Set("vnp_CreateDate", now.Format("20060102150405"))
		params.Set(vnpSecureHash, signVNPay(s.config.GetPaymentHashSecret(), params))

		writeData(w, http.StatusOK, wallet.PaymentSession{
			PaymentURL: s.config.GetPaymentGatewayURL() + "?" + params.Encode(),
			OrderID:    orderID,
		}, "")
	}
}

// VNPayReturnHandler settles a pending deposit from the signed gateway result.
func (s *Server) VNPayReturnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		if !verifyVNPay(s.config.GetPaymentHashSecret(), params) {
			writeError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		orderID := params.Get("vnp_TxnRef")
		status := wallet.StatusFailed
		if params.Get("vnp_ResponseCode") == vnpResponseOK {
			status = wallet.StatusCompleted
		}
		userID, ok := s.data.settle(orderID, status, params.Get("vnp_TransactionNo"))
		if !ok {
			writeError(w, http.StatusNotFound, "Order not found or already processed")
			return
		}
		s.logger.Info().Str("order_id", orderID).Str("user_id", userID).Str("status", string(status)).Msg("deposit settled")
		tx, _ := s.data.transaction(userID, orderID)
		writeData(w, http.StatusOK, tx, "")
	}
}

func (s *Server) PaymentDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tx, ok := s.data.transaction(userIDFrom(r), r.PathValue("id"))
		if !ok {
			writeError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		writeData(w, http.StatusOK, tx, "")
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
