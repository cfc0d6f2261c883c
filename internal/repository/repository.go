// Package repository holds the PostgreSQL data access for the back office.
// Every repository accepts either the pool or a transaction, so the same
// queries run inside TxRunner callbacks.
package repository

import (
	"context"
	"time"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

// AdminUserStore persists admin accounts and their session token.
type AdminUserStore interface {
	GetActiveByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	GetActiveByTokenHash(ctx context.Context, tokenHash string) (*models.AdminUser, error)
	GetByID(ctx context.Context, id int) (*models.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	SetToken(ctx context.Context, id int, tokenHash string) error
	ClearTokenByHash(ctx context.Context, tokenHash string) (bool, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	Create(ctx context.Context, user *models.AdminUser) error
}

// ProductFilter narrows the admin product list. Empty fields are ignored.
type ProductFilter struct {
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}

// ProductStore persists products.
type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	GetByID(ctx context.Context, id int) (*models.Product, error)
	LockByID(ctx context.Context, id int) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	ListPublic(ctx context.Context, page, limit int) ([]models.Product, int, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	SetStock(ctx context.Context, id, quantity int) error
	AdjustStock(ctx context.Context, id, delta int) error
	Delete(ctx context.Context, id int) error
}

// ProductImageStore persists product image rows.
type ProductImageStore interface {
	ListByProduct(ctx context.Context, productID int) ([]models.ProductImage, error)
	PrimaryByProducts(ctx context.Context, productIDs []int) (map[int]models.ProductImage, error)
	GetByID(ctx context.Context, id int) (*models.ProductImage, error)
	CountByProduct(ctx context.Context, productID int) (int, error)
	Create(ctx context.Context, img *models.ProductImage) error
	SetPrimary(ctx context.Context, productID, imageID int) error
	PromoteFirstIfNoPrimary(ctx context.Context, productID int) error
	DeleteByIDs(ctx context.Context, productID int, imageIDs []int) ([]models.ProductImage, error)
	DeleteByProduct(ctx context.Context, productID int) ([]models.ProductImage, error)
	UpdateFile(ctx context.Context, img *models.ProductImage) error
	UpdateSortOrder(ctx context.Context, productID, imageID, sortOrder int) (bool, error)
	UpdateAltText(ctx context.Context, productID, imageID int, altText string) error
	ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error)
}

// EmployeeFilter narrows the employee list.
type EmployeeFilter struct {
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}

// EmployeeStore persists employees.
type EmployeeStore interface {
	Create(ctx context.Context, e *models.Employee) error
	Update(ctx context.Context, e *models.Employee) error
	GetByID(ctx context.Context, id int) (*models.Employee, error)
	List(ctx context.Context, f EmployeeFilter) ([]models.Employee, int, error)
	Delete(ctx context.Context, id int) error
}

// SaleFilter narrows the sales list by sold_at range and status.
type SaleFilter struct {
	From   *time.Time
	To     *time.Time
	Status string
	Page   int
	Limit  int
}

// SaleStore persists sales and their line items.
type SaleStore interface {
	Create(ctx context.Context, s *models.Sale) error
	CreateItem(ctx context.Context, item *models.SaleItem) error
	GetByID(ctx context.Context, id int) (*models.Sale, error)
	LockByID(ctx context.Context, id int) (*models.Sale, error)
	ListItems(ctx context.Context, saleID int) ([]models.SaleItem, error)
	List(ctx context.Context, f SaleFilter) ([]models.Sale, int, error)
	UpdateStatus(ctx context.Context, id int, status models.SaleStatus) error
}

// SequenceStore hands out monotonically increasing numbers per name.
type SequenceStore interface {
	Next(ctx context.Context, name string) (int64, error)
}

// DashboardStore computes the admin landing page figures.
type DashboardStore interface {
	Summary(ctx context.Context, dayStart, dayEnd time.Time) (*models.DashboardSummary, error)
}

// Repos bundles the repositories bound to one connection or transaction.
type Repos struct {
	Admins    AdminUserStore
	Products  ProductStore
	Images    ProductImageStore
	Employees EmployeeStore
	Sales     SaleStore
	Sequences SequenceStore
	Dashboard DashboardStore
}

// TxRunner runs fn with repositories bound to a single transaction, committing
// when fn returns nil and rolling back otherwise.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
}

// DefaultLimit and MaxLimit bound paginated queries.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// normalizePage clamps page/limit and returns the SQL offset.
func normalizePage(page, limit int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit, (page - 1) * limit
}
