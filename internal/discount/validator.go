package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

var percentBase = decimal.NewFromInt(100)

// Eligible reports whether the discount can be applied to an order with the
// given subtotal at the given time. All conditions must hold: the record is
// active, the date window contains now, the subtotal meets the minimum, and
// the usage cap is not exhausted.
func Eligible(d *Discount, subtotal decimal.Decimal, now time.Time) bool {
	if d == nil || !d.Active {
		return false
	}
	if d.StartDate != nil && d.StartDate.After(now) {
		return false
	}
	if d.EndDate != nil && d.EndDate.Before(now) {
		return false
	}
	if d.MinAmount != nil && subtotal.LessThan(*d.MinAmount) {
		return false
	}
	if d.MaxUses != nil && d.UsedCount >= *d.MaxUses {
		return false
	}
	return true
}

// Amount computes the discount value for the subtotal, clamped to
// [0, subtotal] so an applied discount can never push the total negative.
func Amount(d *Discount, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	if d.Type == TypePercentage {
		amount = subtotal.Mul(d.Value).Div(percentBase).Round(2)
	} else {
		amount = d.Value
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount
}
