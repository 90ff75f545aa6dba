// Package units converts imperial volume and mass answers to the canonical
// metric representation stored in hydration records.
package units

import "math"

const (
	MillilitersPerFluidOunce = 29.5735
	GramsPerOunce            = 28.3495
)

// ToMilliliters converts fluid ounces to milliliters, rounded to 2 decimals.
func ToMilliliters(oz float64) float64 {
	return round2(oz * MillilitersPerFluidOunce)
}

// ToGrams converts ounces to grams, rounded to 2 decimals.
func ToGrams(oz float64) float64 {
	return round2(oz * GramsPerOunce)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
