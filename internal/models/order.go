// internal/models/order.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPurchased  OrderStatus = "purchased"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is created exactly once per paid checkout session.
// Metadata.GatewaySessionID is unique across all orders.
type Order struct {
	ID             string               `json:"id" db:"id"`
	OrderNumber    string               `json:"order_number" db:"order_number"`
	UserID         string               `json:"user_id" db:"user_id"`
	Items          []OrderItem          `json:"items" db:"items"`
	Pricing        PricingBreakdown     `json:"pricing" db:"pricing"`
	Status         OrderStatus          `json:"status" db:"status"`
	StatusHistory  []StatusHistoryEntry `json:"status_history" db:"status_history"`
	Metadata       OrderMetadata        `json:"metadata" db:"metadata"`
	CartConsumedAt *time.Time           `json:"cart_consumed_at,omitempty" db:"cart_consumed_at"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" db:"updated_at"`
}

// OrderItem is a line item copied from the cart at materialization time.
type OrderItem struct {
	ProductURL string            `json:"product_url"`
	Name       string            `json:"name"`
	Price      decimal.Decimal   `json:"price"`
	Currency   string            `json:"currency"`
	Quantity   int               `json:"quantity"`
	Options    map[string]string `json:"options,omitempty"`
	Store      string            `json:"store"`
}

type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note"`
	ChangedAt time.Time   `json:"changed_at"`
}

type OrderMetadata struct {
	GatewaySessionID string `json:"gateway_session_id" db:"gateway_session_id"`
	CartID           string `json:"cart_id" db:"cart_id"`
}
