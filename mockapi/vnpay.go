package mockapi

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const (
	vnpSecureHash     = "vnp_SecureHash"
	vnpSecureHashType = "vnp_SecureHashType"
	vnpResponseOK     = "00"
	vnpVersion        = "2.1.0"
)

// signVNPay returns the hex HMAC-SHA512 of the vnp_ parameters sorted by key,
// excluding the hash fields themselves.
func signVNPay(secret string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, "vnp_") || k == vnpSecureHash || k == vnpSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyVNPay(secret string, params url.Values) bool {
	got, err := hex.DecodeString(params.Get(vnpSecureHash))
	if err != nil || len(got) == 0 {
		return false
	}
	want, _ := hex.DecodeString(signVNPay(secret, params))
	return hmac.Equal(got, want)
}

// SignedVNPayReturn builds the query string the gateway would append to the
// return URL for orderID. It lets tools and tests settle a pending deposit.
func SignedVNPayReturn(secret, orderID string, amount float64, responseCode string) url.Values {
	params := url.Values{}
	params.Set("vnp_TxnRef", orderID)
	params.Set("vnp_Amount", formatVNPayAmount(amount))
	params.Set("vnp_ResponseCode", responseCode)
	params.Set("vnp_TransactionNo", strings.ToUpper(orderID[:min(8, len(orderID))]))
	params.Set(vnpSecureHash, signVNPay(secret, params))
	return params
}
