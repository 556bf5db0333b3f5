package projection

// Rating classifies a projection by how quickly it pays back.
type Rating struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Rating codes.
const (
	RatingExcellent = "excellent"
	RatingStrong    = "strong"
	RatingLongTerm  = "long-term"
)

// RateInvestment maps a payback period to its investment rating.
func RateInvestment(paybackYears float64) Rating {
	switch {
	case paybackYears < 3:
		return Rating{Code: RatingExcellent, Label: "Excellent Investment Potential"}
	case paybackYears <= 5:
		return Rating{Code: RatingStrong, Label: "Strong Long-Term Savings"}
	default:
		return Rating{Code: RatingLongTerm, Label: "Best for Long-Term Ownership"}
	}
}
