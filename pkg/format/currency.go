// Package format renders projection values for display.
package format

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var indianEnglish = language.Make("en-IN")

// Rupees returns a whole-rupee string with the rupee sign and Indian digit
// grouping (e.g., "₹1,23,456", "-₹500").
func Rupees(amount float64) string {
	formatted := groupIndian(amount)
	if amount <= -0.5 {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// NumericRupees returns the grouped amount without a currency symbol (e.g., "1,23,456").
func NumericRupees(amount float64) string {
	sign := ""
	if amount <= -0.5 {
		sign = "-"
	}
	return sign + groupIndian(amount)
}

// Kilowatts renders a system size with one decimal place (e.g., "2.5 kW").
func Kilowatts(size float64) string {
	return fmt.Sprintf("%.1f kW", size)
}

// Years renders a payback period with one decimal place (e.g., "2.3 years").
func Years(years float64) string {
	return fmt.Sprintf("%.1f years", years)
}

// groupIndian renders a whole-rupee magnitude in the en-IN lakh/crore
// grouping (e.g., 1234567 -> "12,34,567").
func groupIndian(amount float64) string {
	return message.NewPrinter(indianEnglish).Sprintf("%d", int64(math.Round(math.Abs(amount))))
}
