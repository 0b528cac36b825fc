package math

import (
	"fmt"
	stdmath "math"
	"math/big"
	"sync"
)

// Scale is the global fixed-point scale: 6 decimal places.
// Prices, amounts, ratios, and discounts all share this scale so that
// relative-price and solvency formulas compose without rescaling.
const (
	DecimalPrecision       = 6
	Scale            int64 = 1_000_000
)

// Int128 pool for intermediate products that may overflow int64
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0)
	int128Pool.Put(v)
}

// MulInt128 performs a * b using big.Int to prevent overflow.
// The caller owns the returned value until it is passed to DivInt128.
func MulInt128(a, b int64) *big.Int {
	result := getInt128()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// DivInt128 performs numerator / denominator, truncating toward zero,
// and returns the numerator to the pool. Quotients outside the int64
// range saturate rather than wrap, so oversized inputs can never
// manufacture a small solvency requirement.
func DivInt128(numerator *big.Int, denominator int64) int64 {
	quotient := getInt128()
	quotient.Quo(numerator, big.NewInt(denominator))

	var result int64
	if quotient.IsInt64() {
		result = quotient.Int64()
	} else if quotient.Sign() > 0 {
		result = stdmath.MaxInt64
	} else {
		result = stdmath.MinInt64
	}

	putInt128(quotient)
	putInt128(numerator)

	return result
}

// MulFixed multiplies two fixed-point values: a * b / Scale.
// Truncates toward zero.
func MulFixed(a, b int64) int64 {
	return DivInt128(MulInt128(a, b), Scale)
}

// DivFixed divides two fixed-point values: a * Scale / b.
// Truncates toward zero. b must be nonzero.
func DivFixed(a, b int64) int64 {
	return DivInt128(MulInt128(a, Scale), b)
}

// MulDiv computes a * num / den in one int128 pass, truncating toward zero.
// Used where a MulFixed+DivFixed chain would truncate twice.
func MulDiv(a, num, den int64) int64 {
	return DivInt128(MulInt128(a, num), den)
}

// Format renders a fixed-point value as a decimal string, e.g. 1_500_000 -> "1.500000".
func Format(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%06d", sign, v/Scale, v%Scale)
}
