// internal/models/payment.go
package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

const PaymentMethodCard = "card"

// Payment records a captured gateway payment. TransactionID is unique.
type Payment struct {
	ID                     string          `json:"id" db:"id"`
	PaymentNumber          string          `json:"payment_number" db:"payment_number"`
	OrderID                string          `json:"order_id" db:"order_id"`
	UserID                 string          `json:"user_id" db:"user_id"`
	Amount                 decimal.Decimal `json:"amount" db:"amount"`
	Currency               string          `json:"currency" db:"currency"`
	Method                 string          `json:"method" db:"method"`
	Status                 PaymentStatus   `json:"status" db:"status"`
	TransactionID          string          `json:"transaction_id" db:"transaction_id"`
	GatewayPaymentIntentID string          `json:"gateway_payment_intent_id,omitempty" db:"gateway_payment_intent_id"`
	// GatewayResponse is the gateway's payload kept verbatim for audit.
	GatewayResponse json.RawMessage `json:"-" db:"gateway_response"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}
