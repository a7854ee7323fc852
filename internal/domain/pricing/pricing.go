// Package pricing derives a listing's displayed price tuple from its raw
// inputs: the pre-discount original price, an optional discount percentage,
// and a pair of configured currency bounds. Normalization clamps rather than
// rejects; the only hard failure is a missing or non-positive raw price.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// smallestUnit is one cent, the minimum gap enforced between the original
// and selling price when a discount is applied.
var smallestUnit = decimal.New(1, -2)

// ErrRawPriceRequired is returned when the legacy raw price is missing
// (zero value) on input.
var ErrRawPriceRequired = errors.New("raw price is required")

// ErrRawPriceInvalid is returned when the raw price is not strictly positive.
var ErrRawPriceInvalid = errors.New("raw price must be greater than zero")

// Bounds is the allowed price window in the base currency, derived from an
// INR floor/ceiling and a fixed conversion rate.
type Bounds struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// NewBounds converts the configured INR floor and ceiling into base-currency
// bounds using the given conversion rate, rounding half-up to 2 decimals.
func NewBounds(rate, minINR, maxINR decimal.Decimal) Bounds {
	return Bounds{
		Min: minINR.DivRound(rate, 2),
		Max: maxINR.DivRound(rate, 2),
	}
}

// clamp forces d into the [Min, Max] window.
func (b Bounds) clamp(d decimal.Decimal) decimal.Decimal {
	if d.LessThan(b.Min) {
		return b.Min
	}
	if d.GreaterThan(b.Max) {
		return b.Max
	}
	return d
}

// Input holds the price fields of a listing before normalization. Nil
// pointers mark absent optional fields.
type Input struct {
	RawPrice        decimal.Decimal
	OriginalPrice   *decimal.Decimal
	DiscountPercent *decimal.Decimal
	CostPrice       *decimal.Decimal
}

// Normalized is the internally consistent price tuple produced by Normalize.
// OriginalPrice and SellingPrice always lie within bounds, RawPrice is kept
// in sync with SellingPrice for legacy consumers, and CostPrice (when
// present) never exceeds OriginalPrice.
type Normalized struct {
	RawPrice        decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent *decimal.Decimal
	SellingPrice    decimal.Decimal
	CostPrice       *decimal.Decimal
}

// Normalize computes the bounded price tuple for a listing.
//
// When a discount is present the selling price is strictly below the
// original price; when the final bounds clamp would violate that, the clamp
// wins and the two may meet at the boundary. Reapplying Normalize to its own
// output yields the same tuple.
func Normalize(in Input, b Bounds) (Normalized, error) {
	if in.RawPrice.IsZero() {
		return Normalized{}, ErrRawPriceRequired
	}
	if !in.RawPrice.IsPositive() {
		return Normalized{}, ErrRawPriceInvalid
	}

	// Original price defaults to the legacy raw price, then is clamped.
	original := in.RawPrice
	if in.OriginalPrice != nil {
		original = *in.OriginalPrice
	}
	original = b.clamp(original.Round(2))

	out := Normalized{OriginalPrice: original}

	if in.DiscountPercent == nil {
		// No discount: the original price stands as the selling price.
		out.SellingPrice = original
	} else {
		disc := clampPercent(*in.DiscountPercent)
		out.DiscountPercent = &disc

		selling := original.Mul(hundred.Sub(disc)).Div(hundred).Round(2)

		// A discount must actually discount: never let selling reach the
		// original price.
		if selling.GreaterThanOrEqual(original) {
			selling = original.Sub(smallestUnit)
		}
		out.SellingPrice = b.clamp(selling)
	}

	out.RawPrice = out.SellingPrice

	if in.CostPrice != nil {
		cost := b.clamp(in.CostPrice.Round(2))
		if cost.GreaterThan(original) {
			cost = original
		}
		out.CostPrice = &cost
	}

	return out, nil
}

// clampPercent forces a discount percentage into [0, 100].
func clampPercent(d decimal.Decimal) decimal.Decimal {
	switch {
	case d.IsNegative():
		return decimal.Zero.Round(2)
	case d.GreaterThan(hundred):
		return hundred.Round(2)
	default:
		return d.Round(2)
	}
}
