package pricing

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("computed total is negative")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

var (
	// Orders above this subtotal ship for free; at or below it the flat fee applies.
	freeShippingThreshold = decimal.NewFromInt(100)
	flatShippingFee       = decimal.NewFromInt(10)
	taxRate               = decimal.NewFromFloat(0.10)
)

// Line is a priced order line. UnitPrice is the authoritative variant price
// fetched at computation time, never a client-supplied value.
type Line struct {
	VariantID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// ComputeQuote derives subtotal, shipping, tax and total for the given lines.
// All arithmetic is decimal; tax and total are rounded to cents.
func ComputeQuote(lines []Line, discount decimal.Decimal) (Quote, error) {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, fmt.Errorf("pricing: variant %s: %w", line.VariantID, ErrInvalidQuantity)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	shipping := flatShippingFee
	if subtotal.GreaterThan(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(taxRate).Round(2)

	total := subtotal.Add(shipping).Add(tax).Sub(discount).Round(2)
	if total.IsNegative() {
		return Quote{}, fmt.Errorf("pricing: %w", ErrInvalidAmount)
	}

	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}, nil
}

// MinorUnits converts a decimal amount to integer minor units (cents) for the
// payment gateway, rounding to the nearest cent.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
