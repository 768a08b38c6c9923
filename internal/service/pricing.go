// internal/service/pricing.go
package service

import (
	"github.com/shopspring/decimal"

	"order-reconciler/internal/models"
)

var hundred = decimal.NewFromInt(100)

// SnapshotPricing computes the landed cost of items under cfg. Every
// component is rounded half-up to two places.
func SnapshotPricing(items []models.CartItem, discount decimal.Decimal, cfg models.PricingConfig) models.PricingBreakdown {
	productPrice := decimal.Zero
	storeSubtotals := make(map[string]decimal.Decimal)
	for _, item := range items {
		line := item.PriceDecimal().Mul(decimal.NewFromInt(int64(item.Quantity)))
		productPrice = productPrice.Add(line)
		storeSubtotals[item.Store] = storeSubtotals[item.Store].Add(line)
	}

	commission := decimal.Zero
	for store, subtotal := range storeSubtotals {
		commission = commission.Add(percentOf(subtotal, cfg.CommissionPercentFor(store)))
	}

	productPrice = round2(productPrice)
	commission = round2(commission)
	customs := round2(percentOf(productPrice, cfg.CustomsPercent))

	shipping := round2(cfg.InternationalShipping)
	if cfg.FreeShippingThreshold.IsPositive() && productPrice.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount = round2(discount)
	total := productPrice.Add(shipping).Add(commission).Add(customs).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return models.PricingBreakdown{
		ProductPrice:             productPrice,
		ShippingCost:             shipping,
		Commission:               commission,
		CustomsFees:              customs,
		TotalDiscount:            discount,
		TotalCost:                total,
		TotalInSecondaryCurrency: round2(total.Mul(cfg.SecondaryCurrencyRate)),
	}
}

func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// round2 rounds half away from zero, which is half-up for money amounts.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
