package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const saleColumns = `id, sale_code, employee_id, customer_name, total_amount, payment_method, status,
	notes, sold_at, created_at, updated_at`

// SaleRepository handles data access for sales and sale items.
type SaleRepository struct {
	db sqlx.ExtContext
}

// NewSaleRepository creates a new SaleRepository.
func NewSaleRepository(db sqlx.ExtContext) *SaleRepository {
	return &SaleRepository{db: db}
}

// Create inserts the sale header.
func (r *SaleRepository) Create(ctx context.Context, s *models.Sale) error {
	const q = `
		INSERT INTO sales (sale_code, employee_id, customer_name, total_amount, payment_method, status, notes, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		s.SaleCode, s.EmployeeID, s.CustomerName, s.TotalAmount, s.PaymentMethod, s.Status, s.Notes, s.SoldAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// CreateItem inserts one sale line.
func (r *SaleRepository) CreateItem(ctx context.Context, item *models.SaleItem) error {
	const q = `
		INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.db.QueryRowxContext(ctx, q,
		item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal,
	).Scan(&item.ID)
}

// GetByID returns a sale header, or sql.ErrNoRows.
func (r *SaleRepository) GetByID(ctx context.Context, id int) (*models.Sale, error) {
	var s models.Sale
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &s, q, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// LockByID reads a sale with FOR UPDATE inside a transaction.
func (r *SaleRepository) LockByID(ctx context.Context, id int) (*models.Sale, error) {
	var s models.Sale
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &s, q, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListItems returns the lines of a sale.
func (r *SaleRepository) ListItems(ctx context.Context, saleID int) ([]models.SaleItem, error) {
	items := []models.SaleItem{}
	const q = `SELECT id, sale_id, product_id, product_name, quantity, unit_price, subtotal
		FROM sale_items WHERE sale_id = $1 ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.db, &items, q, saleID); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns a page of sales, newest first, and the total count.
func (r *SaleRepository) List(ctx context.Context, f SaleFilter) ([]models.Sale, int, error) {
	_, limit, offset := normalizePage(f.Page, f.Limit)

	const baseWhere = `WHERE ($1::timestamptz IS NULL OR sold_at >= $1)
		AND ($2::timestamptz IS NULL OR sold_at < $2)
		AND ($3 = '' OR status = $3)`

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(1) FROM sales `+baseWhere, f.From, f.To, f.Status); err != nil {
		return nil, 0, err
	}

	sales := []models.Sale{}
	q := `SELECT ` + saleColumns + ` FROM sales ` + baseWhere + `
		ORDER BY sold_at DESC, id DESC LIMIT $4 OFFSET $5`
	if err := sqlx.SelectContext(ctx, r.db, &sales, q, f.From, f.To, f.Status, limit, offset); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// UpdateStatus changes a sale's status.
func (r *SaleRepository) UpdateStatus(ctx context.Context, id int, status models.SaleStatus) error {
	const q = `UPDATE sales SET status = $2, updated_at = NOW() WHERE id = $1`
	return execAffectingOne(ctx, r.db, q, id, status)
}
