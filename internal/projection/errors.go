package projection

import (
	"errors"
	"fmt"
)

// Input field names reported by ValidationError.
const (
	FieldCity        = "city"
	FieldMonthlyBill = "monthlyBill"
	FieldRoofType    = "roofType"
)

// ValidationError reports an input outside its declared domain. No projection
// is produced when one is returned.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
