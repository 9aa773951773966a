// Package pricing computes the effective unit price of a menu item. It is the
// single place that applies offer discounts, so the catalog, order placement,
// and reports all agree on what an item costs.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// EffectiveUnitPrice applies an item's offer discount to its list price. The
// discount only counts when the offer is active and has not expired; otherwise
// the list price stands. The result is rounded to 2 decimal places.
func EffectiveUnitPrice(listPrice, discountPercent decimal.Decimal, validUntil time.Time, offerActive bool, now time.Time) decimal.Decimal {
	if !offerActive || discountPercent.IsZero() || !validUntil.After(now) {
		return listPrice.Round(2)
	}
	factor := hundred.Sub(discountPercent).Div(hundred)
	return listPrice.Mul(factor).Round(2)
}
