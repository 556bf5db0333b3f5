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

// CalculatorLogRepository stores summaries of calculator runs.
type CalculatorLogRepository struct {
	db *sql.DB
}

// NewCalculatorLogRepository creates a new calculator log repository.
func NewCalculatorLogRepository(db *sql.DB) *CalculatorLogRepository {
	return &CalculatorLogRepository{db: db}
}

// InsertCalculatorLog persists one calculation summary.
func (r *CalculatorLogRepository) InsertCalculatorLog(ctx context.Context, entry *models.CalculatorLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO calculator_logs (id, city, monthly_bill, estimated_units, system_size, annual_savings, payback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.City, money(entry.MonthlyBill), money(entry.EstimatedUnits),
		money(entry.SystemSizeKW), money(entry.AnnualSavings),
		decimal.NewFromFloat(entry.PaybackYears).Round(1), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calculator log: %w", translateError(err))
	}
	return nil
}

// List returns calculator logs newest first.
func (r *CalculatorLogRepository) List(ctx context.Context, limit, offset int) ([]models.CalculatorLog, error) {
	query := `
		SELECT id, city, monthly_bill, estimated_units, system_size, annual_savings, payback, created_at
		FROM calculator_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list calculator logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.CalculatorLog, 0)
	for rows.Next() {
		var (
			l                                      models.CalculatorLog
			bill, units, size, savings, paybackYrs decimal.Decimal
		)
		if err := rows.Scan(&l.ID, &l.City, &bill, &units, &size, &savings, &paybackYrs, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan calculator log: %w", err)
		}
		l.MonthlyBill = bill.InexactFloat64()
		l.EstimatedUnits = units.InexactFloat64()
		l.SystemSizeKW = size.InexactFloat64()
		l.AnnualSavings = savings.InexactFloat64()
		l.PaybackYears = paybackYrs.InexactFloat64()
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calculator logs: %w", err)
	}
	return logs, nil
}

// Count returns the total number of calculator runs recorded.
func (r *CalculatorLogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calculator_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count calculator logs: %w", err)
	}
	return n, nil
}
