package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Scale converts a price expressed as a percentage of face value into
// the unsigned 160-bit fixed-point integer form the contract expects.
//
// Definition (spec.md §3, §9): scaled = round(price_percent * 1000) *
// (S / 1000). The two-step form is deliberate: it preserves exactly
// three decimal digits of price_percent before S is applied, avoiding
// the float-lossy alternative round(price_percent * S). S must be a
// multiple of 1000 so the second multiplication is integer-exact; see
// SPEC_FULL.md's fixed resolution of the source's scaling-inconsistency
// Open Question — this form applies to every endpoint, not just the
// single-secid one.
func Scale(pricePercent float64, scalingFactor int64) (*big.Int, error) {
	if scalingFactor%1000 != 0 {
		return nil, fmt.Errorf("scaling factor %d is not a multiple of 1000", scalingFactor)
	}

	milliPercent := decimal.NewFromFloat(pricePercent).
		Mul(decimal.NewFromInt(1000)).
		Round(0)

	multiplier := scalingFactor / 1000
	scaled := milliPercent.Mul(decimal.NewFromInt(multiplier))

	return scaled.BigInt(), nil
}

// Unscale is the inverse of Scale, used only by tests asserting the
// round-trip invariant of spec.md §8.
func Unscale(scaled *big.Int, scalingFactor int64) float64 {
	multiplier := scalingFactor / 1000
	d := decimal.NewFromBigInt(scaled, 0).
		Div(decimal.NewFromInt(multiplier)).
		Div(decimal.NewFromInt(1000))
	f, _ := d.Float64()
	return f
}
