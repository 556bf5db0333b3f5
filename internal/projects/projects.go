// Package projects manages the completed-installation showcase.
package projects

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/models"
	"go.uber.org/zap"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid project")

// Input is the editable part of a project.
type Input struct {
	Title       string  `json:"title"`
	Location    string  `json:"location"`
	CapacityKW  float64 `json:"capacityKW"`
	ImageURL    string  `json:"imageUrl"`
	ClientName  string  `json:"clientName"`
	Review      string  `json:"review"`
	ClientImage *string `json:"clientImage,omitempty"`
}

// Validate checks required fields.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if strings.TrimSpace(in.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalid)
	}
	if math.IsNaN(in.CapacityKW) || math.IsInf(in.CapacityKW, 0) || in.CapacityKW <= 0 {
		return fmt.Errorf("%w: capacityKW must be greater than zero", ErrInvalid)
	}
	return nil
}

func (in Input) apply(p *models.Project) {
	p.Title = strings.TrimSpace(in.Title)
	p.Location = strings.TrimSpace(in.Location)
	p.CapacityKW = in.CapacityKW
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	p.ClientName = strings.TrimSpace(in.ClientName)
	p.Review = strings.TrimSpace(in.Review)
	p.ClientImage = nil
	if in.ClientImage != nil {
		if img := strings.TrimSpace(*in.ClientImage); img != "" {
			p.ClientImage = &img
		}
	}
}

// Repository is the persistence contract of the service.
type Repository interface {
	Create(ctx context.Context, p *models.Project) error
	Update(ctx context.Context, p *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context, limit, offset int) ([]models.Project, error)
	Count(ctx context.Context) (int, error)
}

// Service handles showcase projects.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Create validates and stores a new project.
func (s *Service) Create(ctx context.Context, in Input) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &models.Project{}
	in.apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.logger.Info("project created", zap.String("op", "projects.Create"), zap.String("id", p.ID.String()))
	return p, nil
}

// Update replaces the editable fields of an existing project.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (*models.Project, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	s.logger.Info("project updated", zap.String("op", "projects.Update"), zap.String("id", id.String()))
	return p, nil
}

// Delete removes a project.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", zap.String("op", "projects.Delete"), zap.String("id", id.String()))
	return nil
}

// Get returns one project.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.repo.Get(ctx, id)
}

// List returns projects newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return s.repo.List(ctx, limit, max(offset, 0))
}

// Count returns the number of projects.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
