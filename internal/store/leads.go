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

// LeadRepository handles lead persistence.
type LeadRepository struct {
	db *sql.DB
}

// NewLeadRepository creates a new lead repository.
func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create inserts a lead. A nil ID and zero CreatedAt are filled in.
func (r *LeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO leads (id, full_name, phone, email, city, monthly_bill, roof_type, property_type, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		lead.ID, lead.FullName, lead.Phone, lead.Email, lead.City,
		optionalMoney(lead.MonthlyBill), lead.RoofType, lead.PropertyType,
		lead.Message, lead.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", translateError(err))
	}
	return nil
}

// List returns leads newest first.
func (r *LeadRepository) List(ctx context.Context, limit, offset int) ([]models.Lead, error) {
	query := `
		SELECT id, full_name, phone, email, city, monthly_bill, roof_type, property_type, message, created_at
		FROM leads
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]models.Lead, 0)
	for rows.Next() {
		var (
			lead models.Lead
			bill decimal.NullDecimal
		)
		if err := rows.Scan(
			&lead.ID, &lead.FullName, &lead.Phone, &lead.Email, &lead.City,
			&bill, &lead.RoofType, &lead.PropertyType, &lead.Message, &lead.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		if bill.Valid {
			lead.MonthlyBill = bill.Decimal.InexactFloat64()
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// Delete removes a lead by ID.
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return expectOneRow(res)
}

// Count returns the total number of leads.
func (r *LeadRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}
