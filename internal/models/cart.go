// internal/models/cart.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to one user and is emptied by a successful materialization.
type Cart struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"user_id" bson:"user_id"`
	Items           []CartItem      `json:"items" bson:"items"`
	DiscountSummary DiscountSummary `json:"discount_summary" bson:"discount_summary"`
	Totals          CartTotals      `json:"totals" bson:"totals"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// CartItem prices are strings in storage so they survive the round trip
// through BSON without float rounding.
type CartItem struct {
	ProductURL string            `json:"product_url" bson:"product_url"`
	Name       string            `json:"name" bson:"name"`
	Price      string            `json:"price" bson:"price"`
	Currency   string            `json:"currency" bson:"currency"`
	Quantity   int               `json:"quantity" bson:"quantity"`
	Options    map[string]string `json:"options,omitempty" bson:"options,omitempty"`
	Store      string            `json:"store" bson:"store"`
}

type DiscountSummary struct {
	TotalDiscount  string   `json:"total_discount" bson:"total_discount"`
	CouponsApplied []string `json:"coupons_applied" bson:"coupons_applied"`
}

type CartTotals struct {
	Subtotal string `json:"subtotal" bson:"subtotal"`
	Total    string `json:"total" bson:"total"`
}

// IsEmpty reports whether there is nothing to materialize.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// PriceDecimal parses the stored price; unparseable prices count as zero.
func (i CartItem) PriceDecimal() decimal.Decimal {
	return parseAmount(i.Price)
}

// Amount parses the stored total discount.
func (d DiscountSummary) Amount() decimal.Decimal {
	return parseAmount(d.TotalDiscount)
}

// ToOrderItem snapshots the line item for an order.
func (i CartItem) ToOrderItem() OrderItem {
	var opts map[string]string
	if len(i.Options) > 0 {
		opts = make(map[string]string, len(i.Options))
		for k, v := range i.Options {
			opts[k] = v
		}
	}
	return OrderItem{
		ProductURL: i.ProductURL,
		Name:       i.Name,
		Price:      i.PriceDecimal(),
		Currency:   i.Currency,
		Quantity:   i.Quantity,
		Options:    opts,
		Store:      i.Store,
	}
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
