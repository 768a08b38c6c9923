// internal/models/pricing.go
package models

import "github.com/shopspring/decimal"

// PricingBreakdown is the landed-cost snapshot stored on an order.
type PricingBreakdown struct {
	ProductPrice             decimal.Decimal `json:"product_price"`
	ShippingCost             decimal.Decimal `json:"shipping_cost"`
	Commission               decimal.Decimal `json:"commission"`
	CustomsFees              decimal.Decimal `json:"customs_fees"`
	TotalDiscount            decimal.Decimal `json:"total_discount"`
	TotalCost                decimal.Decimal `json:"total_cost"`
	TotalInSecondaryCurrency decimal.Decimal `json:"total_in_secondary_currency"`
}

// PricingConfig is operator-supplied; percentages are whole numbers (5 = 5%).
type PricingConfig struct {
	DefaultCommissionPercent decimal.Decimal            `json:"default_commission_percent"`
	StoreCommissionPercent   map[string]decimal.Decimal `json:"store_commission_percent,omitempty"`
	CustomsPercent           decimal.Decimal            `json:"customs_percent"`
	InternationalShipping    decimal.Decimal            `json:"international_shipping"`
	FreeShippingThreshold    decimal.Decimal            `json:"free_shipping_threshold"`
	SecondaryCurrency        string                     `json:"secondary_currency"`
	SecondaryCurrencyRate    decimal.Decimal            `json:"secondary_currency_rate"`
}

// CommissionPercentFor returns the store override or the default.
func (c PricingConfig) CommissionPercentFor(store string) decimal.Decimal {
	if pct, ok := c.StoreCommissionPercent[store]; ok {
		return pct
	}
	return c.DefaultCommissionPercent
}
