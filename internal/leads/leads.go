// Package leads captures quote requests submitted through the contact form.
package leads

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/lumoraenergy/lumora/internal/projection"
	"github.com/lumoraenergy/lumora/pkg/constants"
	"github.com/lumoraenergy/lumora/pkg/validation"
	"go.uber.org/zap"
)

// PropertyType classifies the premises of a lead.
type PropertyType string

// Supported property types.
const (
	Residential PropertyType = "Residential"
	Commercial  PropertyType = "Commercial"
	Industrial  PropertyType = "Industrial"
)

// PropertyTypes returns the supported property types in display order.
func PropertyTypes() []PropertyType {
	return []PropertyType{Residential, Commercial, Industrial}
}

// ParsePropertyType resolves a property type case-insensitively.
func ParsePropertyType(value string) (PropertyType, bool) {
	trimmed := strings.TrimSpace(value)
	for _, pt := range PropertyTypes() {
		if strings.EqualFold(trimmed, string(pt)) {
			return pt, true
		}
	}
	return "", false
}

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid lead: " + strings.Join(parts, "; ")
}

// Submission is the raw contact form payload.
type Submission struct {
	FullName     string  `json:"fullName"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	City         string  `json:"city"`
	MonthlyBill  float64 `json:"monthlyBill,omitempty"`
	RoofType     string  `json:"roofType"`
	PropertyType string  `json:"propertyType"`
	Message      string  `json:"message,omitempty"`
}

// Validate checks every field and returns the normalized lead, or a
// *ValidationError naming each problem.
func (s Submission) Validate() (*models.Lead, error) {
	fields := make(map[string]string)
	lead := &models.Lead{
		FullName: strings.TrimSpace(s.FullName),
		Phone:    strings.TrimSpace(s.Phone),
		Email:    strings.ToLower(strings.TrimSpace(s.Email)),
		Message:  strings.TrimSpace(s.Message),
	}

	if lead.FullName == "" {
		fields["fullName"] = "is required"
	}
	if !validation.IsPhone(lead.Phone) {
		fields["phone"] = fmt.Sprintf("must contain %d to %d digits", validation.MinPhoneDigits, validation.MaxPhoneDigits)
	}
	if !validation.IsEmail(lead.Email) {
		fields["email"] = "must be a valid email address"
	}

	if city, err := projection.ParseCity(s.City); err != nil {
		fields["city"] = "is not a supported city"
	} else {
		lead.City = string(city)
	}
	if roof, err := projection.ParseRoofType(s.RoofType); err != nil {
		fields["roofType"] = "must be Flat or Sloped"
	} else {
		lead.RoofType = string(roof)
	}
	if pt, ok := ParsePropertyType(s.PropertyType); !ok {
		fields["propertyType"] = "must be Residential, Commercial or Industrial"
	} else {
		lead.PropertyType = string(pt)
	}

	switch bill := s.MonthlyBill; {
	case bill == 0:
	case math.IsNaN(bill) || bill < projection.MinMonthlyBill || bill > projection.MaxMonthlyBill:
		fields["monthlyBill"] = fmt.Sprintf("must be between %.0f and %.0f", projection.MinMonthlyBill, projection.MaxMonthlyBill)
	default:
		lead.MonthlyBill = bill
	}

	if utf8.RuneCountInString(lead.Message) > constants.MaxLeadMessageLength {
		fields["message"] = fmt.Sprintf("must be at most %d characters", constants.MaxLeadMessageLength)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return lead, nil
}

// Repository is the persistence contract of the service.
type Repository interface {
	Create(ctx context.Context, lead *models.Lead) error
	List(ctx context.Context, limit, offset int) ([]models.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// Service handles lead submission and administration.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new lead service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Submit validates and stores a submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.Lead, error) {
	lead, err := sub.Validate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to store lead: %w", err)
	}

	s.logger.Info("lead captured",
		zap.String("op", "leads.Submit"),
		zap.String("id", lead.ID.String()),
		zap.String("city", lead.City),
		zap.String("propertyType", lead.PropertyType),
	)
	return lead, nil
}

// List returns leads newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	return s.repo.List(ctx, normalizeLimit(limit), max(offset, 0))
}

// Delete removes a lead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("lead deleted", zap.String("op", "leads.Delete"), zap.String("id", id.String()))
	return nil
}

// Count returns the number of stored leads.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// DefaultListLimit and MaxListLimit bound page sizes.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
