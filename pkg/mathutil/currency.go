// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/lumoraenergy/lumora/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// RoundTo rounds a value to the given number of decimal places.
func RoundTo(val float64, places int) float64 {
	if places <= 0 {
		return math.Round(val)
	}
	factor := math.Pow(10, float64(places))
	return math.Round(val*factor) / factor
}

// CeilToStep rounds val up to the nearest multiple of step.
// A non-positive step returns val unchanged.
func CeilToStep(val, step float64) float64 {
	if step <= 0 {
		return val
	}
	return math.Ceil(val/step) * step
}

// Clamp bounds val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	return Max(lo, Min(hi, val))
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Min returns the minimum of two float64 values
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
