// Package models holds the records persisted by the store.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account allowed to sign in.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName,omitempty"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsAdmin reports whether the user may use the admin panel.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Lead represents a quote request submitted through the contact form.
type Lead struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"fullName"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	City         string    `json:"city"`
	MonthlyBill  float64   `json:"monthlyBill,omitempty"` // 0 when not supplied
	RoofType     string    `json:"roofType"`
	PropertyType string    `json:"propertyType"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Project represents a completed installation shown in the showcase.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	CapacityKW  float64   `json:"capacityKW"`
	ImageURL    string    `json:"imageUrl"`
	ClientName  string    `json:"clientName"`
	Review      string    `json:"review"`
	ClientImage *string   `json:"clientImage,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CalculatorLog is the persisted summary of one savings calculation.
type CalculatorLog struct {
	ID             uuid.UUID `json:"id"`
	City           string    `json:"city"`
	MonthlyBill    float64   `json:"monthlyBill"`
	EstimatedUnits float64   `json:"estimatedUnits"`
	SystemSizeKW   float64   `json:"systemSizeKW"`
	AnnualSavings  float64   `json:"annualSavings"`
	PaybackYears   float64   `json:"paybackYears"`
	CreatedAt      time.Time `json:"createdAt"`
}
