package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const productColumns = `id, name, cost_price, selling_price, currency, profit_margin, stock_quantity,
	reorder_level, unit_of_measure, description, is_active, created_at, updated_at`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db sqlx.ExtContext
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db sqlx.ExtContext) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product and fills id and timestamps.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
		INSERT INTO products (name, cost_price, selling_price, currency, profit_margin, stock_quantity,
			reorder_level, unit_of_measure, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		p.Name, p.CostPrice, p.SellingPrice, p.Currency, p.ProfitMargin, p.StockQuantity,
		p.ReorderLevel, p.UnitOfMeasure, p.Description, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Update overwrites the editable columns of a product.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `
		UPDATE products SET
			name = $2, cost_price = $3, selling_price = $4, currency = $5, profit_margin = $6,
			stock_quantity = $7, reorder_level = $8, unit_of_measure = $9, description = $10,
			is_active = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q,
		p.ID, p.Name, p.CostPrice, p.SellingPrice, p.Currency, p.ProfitMargin,
		p.StockQuantity, p.ReorderLevel, p.UnitOfMeasure, p.Description, p.IsActive,
	).Scan(&p.UpdatedAt)
}

// GetByID returns a single product by id, or sql.ErrNoRows.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// LockByID reads a product with FOR UPDATE. It must run inside a transaction;
// concurrent lockers of the same product wait until commit.
func (r *ProductRepository) LockByID(ctx context.Context, id int) (*models.Product, error) {
	var p models.Product
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products with filters and pagination and also returns the total count.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	_, limit, offset := normalizePage(f.Page, f.Limit)

	const baseWhere = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		AND ($2::boolean IS NULL OR is_active = $2)`

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(1) FROM products `+baseWhere, f.Search, f.IsActive); err != nil {
		return nil, 0, err
	}

	products := []models.Product{}
	q := `SELECT ` + productColumns + ` FROM products ` + baseWhere + `
		ORDER BY name, id LIMIT $3 OFFSET $4`
	if err := sqlx.SelectContext(ctx, r.db, &products, q, f.Search, f.IsActive, limit, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListPublic returns a page of active products for the storefront.
func (r *ProductRepository) ListPublic(ctx context.Context, page, limit int) ([]models.Product, int, error) {
	offset := (page - 1) * limit

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(1) FROM products WHERE is_active = true`); err != nil {
		return nil, 0, err
	}

	products := []models.Product{}
	q := `SELECT ` + productColumns + ` FROM products WHERE is_active = true
		ORDER BY name, id LIMIT $1 OFFSET $2`
	if err := sqlx.SelectContext(ctx, r.db, &products, q, limit, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListLowStock returns active products whose stock reached the reorder level.
func (r *ProductRepository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	q := `SELECT ` + productColumns + ` FROM products
		WHERE is_active = true AND stock_quantity <= reorder_level
		ORDER BY stock_quantity, name`
	if err := sqlx.SelectContext(ctx, r.db, &products, q); err != nil {
		return nil, err
	}
	return products, nil
}

// SetStock overwrites the stock quantity.
func (r *ProductRepository) SetStock(ctx context.Context, id, quantity int) error {
	const q = `UPDATE products SET stock_quantity = $2, updated_at = NOW() WHERE id = $1`
	return execAffectingOne(ctx, r.db, q, id, quantity)
}

// AdjustStock adds delta (possibly negative) to the stock quantity. The
// stock_quantity >= 0 check constraint rejects oversells.
func (r *ProductRepository) AdjustStock(ctx context.Context, id, delta int) error {
	const q = `UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = NOW() WHERE id = $1`
	return execAffectingOne(ctx, r.db, q, id, delta)
}

// Delete removes a product. Image rows go with it through ON DELETE CASCADE.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM products WHERE id = $1`, id)
}
