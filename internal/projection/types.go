// Package projection defines the data structures related to a solar savings
// projection and includes the functions for computing one.
package projection

import (
	"fmt"
	"strings"
)

// City is one of the supported installation cities.
type City string

// Supported cities.
const (
	Mumbai    City = "Mumbai"
	Delhi     City = "Delhi"
	Bangalore City = "Bangalore"
	Chennai   City = "Chennai"
	Hyderabad City = "Hyderabad"
	Kolkata   City = "Kolkata"
)

// peakSunHours holds the average daily kWh generated per installed kW.
var peakSunHours = map[City]float64{
	Mumbai:    4.5,
	Delhi:     4.8,
	Bangalore: 4.7,
	Chennai:   5.0,
	Hyderabad: 5.2,
	Kolkata:   4.3,
}

// Cities returns the supported cities in display order.
func Cities() []City {
	return []City{Mumbai, Delhi, Bangalore, Chennai, Hyderabad, Kolkata}
}

// PeakSunHours returns the irradiance constant for the city.
func (c City) PeakSunHours() (float64, bool) {
	hours, ok := peakSunHours[c]
	return hours, ok
}

// ParseCity resolves a city name case-insensitively.
func ParseCity(value string) (City, error) {
	trimmed := strings.TrimSpace(value)
	for _, city := range Cities() {
		if strings.EqualFold(trimmed, string(city)) {
			return city, nil
		}
	}
	return "", &ValidationError{
		Field:   FieldCity,
		Value:   value,
		Message: fmt.Sprintf("unsupported city %q", value),
	}
}

// RoofType describes the mounting surface.
type RoofType string

// Supported roof types.
const (
	Flat   RoofType = "Flat"
	Sloped RoofType = "Sloped"
)

// roofCostMultiplier adjusts the per-kW price for installation complexity.
var roofCostMultiplier = map[RoofType]float64{
	Flat:   1.0,
	Sloped: 1.10,
}

// RoofTypes returns the supported roof types in display order.
func RoofTypes() []RoofType {
	return []RoofType{Flat, Sloped}
}

// ParseRoofType resolves a roof type case-insensitively.
func ParseRoofType(value string) (RoofType, error) {
	trimmed := strings.TrimSpace(value)
	for _, roof := range RoofTypes() {
		if strings.EqualFold(trimmed, string(roof)) {
			return roof, nil
		}
	}
	return "", &ValidationError{
		Field:   FieldRoofType,
		Value:   value,
		Message: fmt.Sprintf("unsupported roof type %q", value),
	}
}

// Input holds the user-supplied parameters of a projection.
type Input struct {
	City        City     `json:"city"`
	MonthlyBill float64  `json:"monthlyBill"`
	RoofType    RoofType `json:"roofType"`
}

// YearProjection is one year of the amortization schedule. Amounts are
// rounded to whole rupees.
type YearProjection struct {
	Year              int     `json:"year"`
	YearlySavings     float64 `json:"yearlySavings"`
	CumulativeSavings float64 `json:"cumulativeSavings"`
}

// Projection is the complete result of a savings calculation. It is built
// once by Compute and treated as read-only afterwards.
type Projection struct {
	City        City     `json:"city"`
	MonthlyBill float64  `json:"monthlyBill"`
	RoofType    RoofType `json:"roofType"`

	AverageTariff          float64 `json:"averageTariff"`
	EstimatedMonthlyUnits  float64 `json:"estimatedMonthlyUnits"`
	MonthlyGenerationPerKW float64 `json:"monthlyGenerationPerKW"`
	RawSystemSizeKW        float64 `json:"rawSystemSizeKW"`
	SystemSizeKW           float64 `json:"systemSizeKW"`
	Oversized              bool    `json:"isOversized"`

	PricePerKW       float64 `json:"pricePerKW"`
	InstallationCost float64 `json:"installationCost"`
	Subsidy          float64 `json:"subsidy"`
	FinalCost        float64 `json:"finalCost"`

	MonthlyGeneration float64 `json:"monthlyGeneration"`
	MonthlySavings    float64 `json:"monthlySavings"`
	AnnualSavings     float64 `json:"annualSavings"`
	NewMonthlyBill    float64 `json:"newMonthlyBill"`
	PaybackYears      float64 `json:"paybackYears"`
	Rating            Rating  `json:"rating"`

	Years             []YearProjection `json:"yearlyProjection"`
	NetSavings25Years float64          `json:"netSavings25Years"`
}

// Summary is the row persisted for every calculator run.
type Summary struct {
	City           City    `json:"city"`
	MonthlyBill    float64 `json:"monthlyBill"`
	EstimatedUnits float64 `json:"estimatedUnits"`
	SystemSizeKW   float64 `json:"systemSizeKW"`
	AnnualSavings  float64 `json:"annualSavings"`
	PaybackYears   float64 `json:"paybackYears"`
}

// Summary extracts the fields recorded by the calculator log.
func (p Projection) Summary() Summary {
	return Summary{
		City:           p.City,
		MonthlyBill:    p.MonthlyBill,
		EstimatedUnits: p.EstimatedMonthlyUnits,
		SystemSizeKW:   p.SystemSizeKW,
		AnnualSavings:  p.AnnualSavings,
		PaybackYears:   p.PaybackYears,
	}
}
