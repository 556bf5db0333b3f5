package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumoraenergy/lumora/internal/models"
	"github.com/shopspring/decimal"
)

const projectColumns = `id, title, location, capacity_kw, image_url, client_name, review, client_image, created_at`

// ProjectRepository handles showcase project persistence.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project. A nil ID and zero CreatedAt are filled in.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Location, money(p.CapacityKW), p.ImageURL,
		p.ClientName, p.Review, nullString(p.ClientImage), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", translateError(err))
	}
	return nil
}

// Update overwrites the editable fields of an existing project.
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	query := `
		UPDATE projects
		SET title = $2, location = $3, capacity_kw = $4, image_url = $5,
		    client_name = $6, review = $7, client_image = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Title, p.Location, money(p.CapacityKW), p.ImageURL,
		p.ClientName, p.Review, nullString(p.ClientImage),
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", translateError(err))
	}
	return expectOneRow(res)
}

// Delete removes a project by ID.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectOneRow(res)
}

// Get returns a single project.
func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", translateError(err))
	}
	return p, nil
}

// List returns projects newest first.
func (r *ProjectRepository) List(ctx context.Context, limit, offset int) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// Count returns the total number of projects.
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(s rowScanner) (*models.Project, error) {
	var (
		p           models.Project
		capacity    decimal.Decimal
		clientImage sql.NullString
	)
	if err := s.Scan(
		&p.ID, &p.Title, &p.Location, &capacity, &p.ImageURL,
		&p.ClientName, &p.Review, &clientImage, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	p.CapacityKW = capacity.InexactFloat64()
	if clientImage.Valid {
		img := clientImage.String
		p.ClientImage = &img
	}
	return &p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
