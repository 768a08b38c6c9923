// internal/models/audit.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnresolvedMaterialization is a paid session that could not be turned into
// an order. Operators resolve these by hand.
type UnresolvedMaterialization struct {
	SessionID   string          `json:"session_id" db:"session_id"`
	UserID      string          `json:"user_id" db:"user_id"`
	CartID      string          `json:"cart_id" db:"cart_id"`
	PaidAmount  decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	Currency    string          `json:"currency" db:"currency"`
	Reason      string          `json:"reason" db:"reason"`
	Attempts    int             `json:"attempts" db:"attempts"`
	FirstSeenAt time.Time       `json:"first_seen_at" db:"first_seen_at"`
	LastSeenAt  time.Time       `json:"last_seen_at" db:"last_seen_at"`
}

// PaymentAuditRow joins a payment to the order it paid for.
type PaymentAuditRow struct {
	OrderID          string          `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	PaymentNumber    string          `json:"payment_number"`
	TransactionID    string          `json:"transaction_id"`
	GatewaySessionID string          `json:"gateway_session_id"`
	PaymentIntentID  string          `json:"payment_intent_id,omitempty"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	RecordedTotal    decimal.Decimal `json:"recorded_total"`
	Currency         string          `json:"currency"`
	AmountMismatch   bool            `json:"amount_mismatch"`
	PaidAt           time.Time       `json:"paid_at"`
}

// PaymentAuditReport summarises payments in a date range.
type PaymentAuditReport struct {
	StartDate      time.Time          `json:"start_date"`
	EndDate        time.Time          `json:"end_date"`
	Rows           []*PaymentAuditRow `json:"rows"`
	PaymentCount   int                `json:"payment_count"`
	TotalPaid      decimal.Decimal    `json:"total_paid"`
	TotalRecorded  decimal.Decimal    `json:"total_recorded"`
	MismatchCount  int                `json:"mismatch_count"`
	OrphanedOrders int                `json:"orphaned_orders"`
	GeneratedAt    time.Time          `json:"generated_at"`
}
