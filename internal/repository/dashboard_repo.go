package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// DashboardRepository aggregates figures across tables.
type DashboardRepository struct {
	db sqlx.ExtContext
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(db sqlx.ExtContext) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary counts products, low-stock products, active employees and the
// completed sales in [dayStart, dayEnd).
func (r *DashboardRepository) Summary(ctx context.Context, dayStart, dayEnd time.Time) (*models.DashboardSummary, error) {
	const q = `
		SELECT
			(SELECT COUNT(1) FROM products) AS product_count,
			(SELECT COUNT(1) FROM products WHERE is_active AND stock_quantity <= reorder_level) AS low_stock_count,
			(SELECT COUNT(1) FROM employees WHERE is_active) AS employee_count,
			COUNT(s.id) AS today_sales,
			COALESCE(SUM(s.total_amount), 0) AS today_revenue
		FROM sales s
		WHERE s.status = 'completed' AND s.sold_at >= $1 AND s.sold_at < $2`
	var sum models.DashboardSummary
	if err := sqlx.GetContext(ctx, r.db, &sum, q, dayStart, dayEnd); err != nil {
		return nil, err
	}
	return &sum, nil
}
