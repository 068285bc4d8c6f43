package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Signature"

const (
	NotificationPaymentSuccessful = "payment_successful"
	TransactionStatusSuccess      = "success"
)

type Party struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Bank          string `json:"bank"`
}

type Customer struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// DepositNotification is the body the provider posts when a transfer lands in a
// virtual account.
type DepositNotification struct {
	NotificationStatus string          `json:"notification_status"`
	TransactionID      string          `json:"transaction_id"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	SettlementAmount   decimal.Decimal `json:"settlement_amount"`
	SettlementFee      decimal.Decimal `json:"settlement_fee"`
	TransactionStatus  string          `json:"transaction_status"`
	Sender             Party           `json:"sender"`
	Receiver           Party           `json:"receiver"`
	Customer           Customer        `json:"customer"`
	Description        string          `json:"description"`
	Timestamp          string          `json:"timestamp"`
}

// Successful reports whether the notification describes money that actually arrived.
func (n DepositNotification) Successful() bool {
	return n.NotificationStatus == NotificationPaymentSuccessful && n.TransactionStatus == TransactionStatusSuccess
}

func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time; hex case is ignored.
func VerifySignature(body []byte, signature, secret string) bool {
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(given) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}
