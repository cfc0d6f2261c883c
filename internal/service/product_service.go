package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/cache"
	"github.com/GTDGit/gtd_backoffice/internal/metrics"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/storage"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// Public listing page bounds.
const (
	PublicDefaultLimit = 12
	PublicMaxLimit     = 50
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ProductService handles product CRUD, stock and the public listing.
type ProductService struct {
	repos           repository.Repos
	tx              repository.TxRunner
	disk            storage.Disk
	cache           *cache.ProductListCache
	defaultCurrency string
}

// NewProductService constructs a ProductService.
func NewProductService(repos repository.Repos, tx repository.TxRunner, disk storage.Disk, listCache *cache.ProductListCache, defaultCurrency string) *ProductService {
	return &ProductService{
		repos:           repos,
		tx:              tx,
		disk:            disk,
		cache:           listCache,
		defaultCurrency: defaultCurrency,
	}
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	CostPrice     *decimal.Decimal `json:"cost_price" validate:"required,gte=0"`
	SellingPrice  *decimal.Decimal `json:"selling_price" validate:"required,gt=0"`
	Currency      string           `json:"currency" validate:"omitempty,len=3"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
	ReorderLevel  int              `json:"reorder_level" validate:"gte=0"`
	UnitOfMeasure string           `json:"unit_of_measure" validate:"omitempty,max=50"`
	Description   string           `json:"description"`
	IsActive      *bool            `json:"is_active"`
}

// StockRequest is the body of PATCH /admin/products/{id}/stock.
type StockRequest struct {
	StockQuantity *int `json:"stock_quantity" validate:"required,gte=0"`
}

// validate re-checks the rules the service depends on, including the
// cross-field price rule.
func (r *ProductRequest) validate() error {
	verr := &utils.ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if r.CostPrice == nil {
		verr.Add("cost_price", "is required")
	} else if r.CostPrice.IsNegative() {
		verr.Add("cost_price", "must be at least 0")
	}
	if r.SellingPrice == nil {
		verr.Add("selling_price", "is required")
	} else if !r.SellingPrice.IsPositive() {
		verr.Add("selling_price", "must be greater than 0")
	} else if r.CostPrice != nil && !r.SellingPrice.GreaterThan(*r.CostPrice) {
		verr.Add("selling_price", "must be greater than cost price")
	}
	if r.StockQuantity < 0 {
		verr.Add("stock_quantity", "must be at least 0")
	}
	if r.ReorderLevel < 0 {
		verr.Add("reorder_level", "must be at least 0")
	}
	if r.Currency != "" && !currencyPattern.MatchString(strings.ToUpper(r.Currency)) {
		verr.Add("currency", "must be a 3-letter ISO 4217 code")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (r *ProductRequest) apply(p *models.Product, defaultCurrency string) {
	p.Name = strings.TrimSpace(r.Name)
	p.CostPrice = r.CostPrice.Round(2)
	p.SellingPrice = r.SellingPrice.Round(2)
	p.Currency = strings.ToUpper(r.Currency)
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	p.StockQuantity = r.StockQuantity
	p.ReorderLevel = r.ReorderLevel
	p.UnitOfMeasure = r.UnitOfMeasure
	if p.UnitOfMeasure == "" {
		p.UnitOfMeasure = "pcs"
	}
	p.Description = r.Description
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	p.RecalculateMargin()
}

// Create adds a product. Products are active unless is_active is false.
func (s *ProductService) Create(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p := &models.Product{IsActive: true}
	req.apply(p, s.defaultCurrency)

	if err := s.repos.Products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	log.Info().Int("product_id", p.ID).Str("name", p.Name).Msg("Product created")
	s.cache.Invalidate(ctx)
	return p, nil
}

// Update overwrites a product's editable fields and recomputes its margin.
func (s *ProductService) Update(ctx context.Context, id int, req *ProductRequest) (*models.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get product")
	}
	req.apply(p, s.defaultCurrency)

	if err := s.repos.Products.Update(ctx, p); err != nil {
		return nil, notFoundOr(err, "update product")
	}
	s.cache.Invalidate(ctx)
	return p, s.attachImages(ctx, p)
}

// Get returns a product with its images.
func (s *ProductService) Get(ctx context.Context, id int) (*models.Product, error) {
	p, err := s.repos.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get product")
	}
	if err := s.attachImages(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns a filtered admin page with each product's primary image.
func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	products, total, err := s.repos.Products.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if err := s.attachPrimary(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// LowStock returns active products at or below their reorder level.
func (s *ProductService) LowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.repos.Products.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	return products, nil
}

// UpdateStock sets a product's stock quantity.
func (s *ProductService) UpdateStock(ctx context.Context, id, quantity int) (*models.Product, error) {
	if quantity < 0 {
		return nil, utils.NewValidationError("stock_quantity", "must be at least 0")
	}
	if err := s.repos.Products.SetStock(ctx, id, quantity); err != nil {
		return nil, notFoundOr(err, "set stock")
	}
	s.cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a product and its images. Rows go first in one transaction;
// stored files are removed afterwards, best-effort. A product referenced by
// sale items cannot be deleted.
func (s *ProductService) Delete(ctx context.Context, id int) error {
	var images []models.ProductImage
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := r.Products.LockByID(ctx, id); err != nil {
			return notFoundOr(err, "lock product")
		}
		var err error
		if images, err = r.Images.DeleteByProduct(ctx, id); err != nil {
			return fmt.Errorf("delete product images: %w", err)
		}
		if err := r.Products.Delete(ctx, id); err != nil {
			if repository.IsForeignKeyViolation(err) {
				return utils.NewValidationError("id", "product has recorded sales")
			}
			return notFoundOr(err, "delete product")
		}
		return nil
	})
	if err != nil {
		return err
	}

	removeFiles(ctx, s.disk, imagePaths(images))
	log.Info().Int("product_id", id).Int("images", len(images)).Msg("Product deleted")
	s.cache.Invalidate(ctx)
	return nil
}

// PublicPage is the storefront listing result.
type PublicPage struct {
	Products []models.Product
	Total    int
	Page     int
	Limit    int
}

// ListPublic returns active products with their primary image. Page defaults
// to 1 and limit to 12, capped at 50. Pages are served from the listing
// cache when available.
func (s *ProductService) ListPublic(ctx context.Context, page, limit int) (*PublicPage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = PublicDefaultLimit
	}
	if limit > PublicMaxLimit {
		limit = PublicMaxLimit
	}

	cached, version, ok := s.cache.Get(ctx, page, limit)
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &PublicPage{Products: cached.Products, Total: cached.Total, Page: page, Limit: limit}, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	products, total, err := s.repos.Products.ListPublic(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list public products: %w", err)
	}
	if err := s.attachPrimary(ctx, products); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, version, page, limit, &cache.PublicPage{Products: products, Total: total})
	return &PublicPage{Products: products, Total: total, Page: page, Limit: limit}, nil
}

func (s *ProductService) attachImages(ctx context.Context, p *models.Product) error {
	images, err := s.repos.Images.ListByProduct(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	p.Images = images
	p.PrimaryImage = nil
	for i := range p.Images {
		p.Images[i].ImageURL = s.disk.URL(p.Images[i].ImagePath)
		if p.Images[i].IsPrimary {
			p.PrimaryImage = &p.Images[i]
		}
	}
	return nil
}

func (s *ProductService) attachPrimary(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	primaries, err := s.repos.Images.PrimaryByProducts(ctx, ids)
	if err != nil {
		return fmt.Errorf("load primary images: %w", err)
	}
	for i := range products {
		if img, ok := primaries[products[i].ID]; ok {
			img.ImageURL = s.disk.URL(img.ImagePath)
			products[i].PrimaryImage = &img
		}
	}
	return nil
}
