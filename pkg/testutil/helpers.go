// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"github.com/lumoraenergy/lumora/internal/projection"
)

// MustCompute computes a projection and fails the test on error.
func MustCompute(t testing.TB, city projection.City, bill float64, roof projection.RoofType) projection.Projection {
	t.Helper()
	p, err := projection.Compute(projection.Input{City: city, MonthlyBill: bill, RoofType: roof})
	if err != nil {
		t.Fatalf("Compute(%s, %v, %s) error = %v", city, bill, roof, err)
	}
	return p
}

// FindYear finds a year in the amortization schedule.
// Returns a pointer to the entry if found, nil otherwise.
func FindYear(years []projection.YearProjection, year int) *projection.YearProjection {
	for i := range years {
		if years[i].Year == year {
			return &years[i]
		}
	}
	return nil
}
