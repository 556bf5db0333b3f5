package projection

import (
	"fmt"
	"math"

	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/mathutil"
)

// Model constants for the fixed regional model.
const (
	MinMonthlyBill = 500.0
	MaxMonthlyBill = 50000.0

	DaysPerMonth     = 30.0
	PerformanceRatio = 0.95

	SizeStepKW        = 0.5
	MinSystemSizeKW   = 1.0
	MaxSystemSizeKW   = 10.0
	OversizeThreshold = 1.2

	BasePricePerKW = 55000.0

	ProjectionYears           = 25
	AnnualTariffGrowth        = 1.03
	AnnualGenerationRetention = 0.993
)

// tariffSlab maps bills up to and including UpTo onto a blended per-unit tariff.
type tariffSlab struct {
	UpTo float64
	Rate float64
}

// tariffSlabs must stay ordered by UpTo.
var tariffSlabs = []tariffSlab{
	{UpTo: 2000, Rate: 6},
	{UpTo: 5000, Rate: 8},
	{UpTo: 10000, Rate: 9.5},
	{UpTo: math.Inf(1), Rate: 11},
}

// subsidyTier pays PerKW for every kW between the previous tier's UpTo and
// this tier's UpTo. Capacity beyond the last tier earns nothing.
type subsidyTier struct {
	UpTo  float64
	PerKW float64
}

// subsidyTiers must stay ordered by UpTo.
var subsidyTiers = []subsidyTier{
	{UpTo: 2, PerKW: 30000},
	{UpTo: 3, PerKW: 18000},
}

// AverageTariff returns the blended per-unit tariff for a monthly bill.
func AverageTariff(monthlyBill float64) float64 {
	for _, slab := range tariffSlabs {
		if monthlyBill <= slab.UpTo {
			return slab.Rate
		}
	}
	return tariffSlabs[len(tariffSlabs)-1].Rate
}

// Subsidy returns the capital subsidy for a system of the given size.
func Subsidy(systemSizeKW float64) float64 {
	subsidy := 0.0
	lower := 0.0
	for _, tier := range subsidyTiers {
		if systemSizeKW <= lower {
			break
		}
		subsidy += tier.PerKW * (mathutil.Min(systemSizeKW, tier.UpTo) - lower)
		lower = tier.UpTo
	}
	return subsidy
}

// ParseInput builds a validated Input from raw request values.
func ParseInput(city string, monthlyBill float64, roofType string) (Input, error) {
	parsedCity, err := ParseCity(city)
	if err != nil {
		return Input{}, err
	}
	parsedRoof, err := ParseRoofType(roofType)
	if err != nil {
		return Input{}, err
	}
	in := Input{City: parsedCity, MonthlyBill: monthlyBill, RoofType: parsedRoof}
	if err := in.Validate(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// Validate checks every field against its declared domain.
func (in Input) Validate() error {
	bill := in.MonthlyBill
	switch {
	case math.IsNaN(bill) || math.IsInf(bill, 0):
		return &ValidationError{Field: FieldMonthlyBill, Value: bill, Message: "must be a finite number"}
	case bill < MinMonthlyBill:
		return &ValidationError{Field: FieldMonthlyBill, Value: bill,
			Message: fmt.Sprintf("must be at least %.0f", MinMonthlyBill)}
	case bill > MaxMonthlyBill:
		return &ValidationError{Field: FieldMonthlyBill, Value: bill,
			Message: fmt.Sprintf("must be at most %.0f", MaxMonthlyBill)}
	}
	if _, ok := in.City.PeakSunHours(); !ok {
		return &ValidationError{Field: FieldCity, Value: string(in.City),
			Message: fmt.Sprintf("unsupported city %q", in.City)}
	}
	if _, ok := roofCostMultiplier[in.RoofType]; !ok {
		return &ValidationError{Field: FieldRoofType, Value: string(in.RoofType),
			Message: fmt.Sprintf("unsupported roof type %q", in.RoofType)}
	}
	return nil
}

// Compute derives the recommended system, its cost after subsidy and the
// 25-year savings schedule. It has no side effects and is safe for
// concurrent use.
func Compute(in Input) (Projection, error) {
	if err := in.Validate(); err != nil {
		return Projection{}, err
	}

	sunHours, _ := in.City.PeakSunHours()
	bill := in.MonthlyBill

	tariff := AverageTariff(bill)
	units := bill / tariff
	generationPerKW := sunHours * DaysPerMonth * PerformanceRatio

	rawSize := units / generationPerKW
	size := mathutil.CeilToStep(rawSize, SizeStepKW)
	// Compared before clamping so the flag reflects rounding, not the bounds.
	oversized := size > rawSize*OversizeThreshold
	size = mathutil.Clamp(size, MinSystemSizeKW, MaxSystemSizeKW)

	pricePerKW := BasePricePerKW * roofCostMultiplier[in.RoofType]
	installationCost := size * pricePerKW
	subsidy := Subsidy(size)
	finalCost := installationCost - subsidy

	monthlyGeneration := size * generationPerKW
	potentialSavings := monthlyGeneration * tariff
	monthlySavings := mathutil.Min(potentialSavings, bill)
	annualSavings := monthlySavings * constants.MonthsPerYear

	years, cumulative := amortize(bill, tariff, monthlyGeneration)
	payback := mathutil.RoundTo(finalCost/annualSavings, 1)

	return Projection{
		City:                   in.City,
		MonthlyBill:            bill,
		RoofType:               in.RoofType,
		AverageTariff:          tariff,
		EstimatedMonthlyUnits:  units,
		MonthlyGenerationPerKW: generationPerKW,
		RawSystemSizeKW:        rawSize,
		SystemSizeKW:           size,
		Oversized:              oversized,
		PricePerKW:             pricePerKW,
		InstallationCost:       installationCost,
		Subsidy:                subsidy,
		FinalCost:              finalCost,
		MonthlyGeneration:      monthlyGeneration,
		MonthlySavings:         monthlySavings,
		AnnualSavings:          annualSavings,
		NewMonthlyBill:         mathutil.Max(0, bill-monthlySavings),
		PaybackYears:           payback,
		Rating:                 RateInvestment(payback),
		Years:                  years,
		NetSavings25Years:      cumulative - finalCost,
	}, nil
}

// amortize walks the projection horizon with tariff escalation and panel
// degradation. Each year's savings are capped by what the inflated bill
// would have cost. The returned total is unrounded.
func amortize(bill, tariff, monthlyGeneration float64) ([]YearProjection, float64) {
	years := make([]YearProjection, 0, ProjectionYears)
	cumulative := 0.0
	currentTariff := tariff
	currentGeneration := monthlyGeneration

	for year := 1; year <= ProjectionYears; year++ {
		billCeiling := bill * constants.MonthsPerYear * math.Pow(AnnualTariffGrowth, float64(year-1))
		yearly := mathutil.Min(currentGeneration*currentTariff*constants.MonthsPerYear, billCeiling)
		cumulative += yearly

		years = append(years, YearProjection{
			Year:              year,
			YearlySavings:     math.Round(yearly),
			CumulativeSavings: math.Round(cumulative),
		})

		currentTariff *= AnnualTariffGrowth
		currentGeneration *= AnnualGenerationRetention
	}

	return years, cumulative
}
