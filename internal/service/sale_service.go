package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/cache"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// SaleService records sales against product stock.
type SaleService struct {
	repos repository.Repos
	tx    repository.TxRunner
	cache *cache.ProductListCache
	now   func() time.Time
}

// NewSaleService constructs a SaleService.
func NewSaleService(repos repository.Repos, tx repository.TxRunner, listCache *cache.ProductListCache) *SaleService {
	return &SaleService{repos: repos, tx: tx, cache: listCache, now: time.Now}
}

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"required,gt=0"`
}

// CreateSaleRequest is the body of POST /admin/sales.
type CreateSaleRequest struct {
	EmployeeID    *int              `json:"employee_id" validate:"omitempty,gt=0"`
	CustomerName  string            `json:"customer_name" validate:"omitempty,max=255"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=cash card transfer"`
	Notes         string            `json:"notes"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
}

// SaleCode formats the code for the n-th sale of day.
func SaleCode(day time.Time, n int64) string {
	return fmt.Sprintf("SALE%s%04d", day.Format("20060102"), n)
}

// Create records a completed sale. Every product row is locked, stock is
// checked and decremented, and unit prices are snapshotted, all in one
// transaction.
func (s *SaleService) Create(ctx context.Context, req *CreateSaleRequest) (*models.Sale, error) {
	if err := validateSaleRequest(req); err != nil {
		return nil, err
	}

	// merge duplicate lines and lock in id order so concurrent sales cannot deadlock
	qty := make(map[int]int)
	var order []int
	for _, it := range req.Items {
		if _, seen := qty[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		qty[it.ProductID] += it.Quantity
	}
	lockOrder := append([]int(nil), order...)
	sort.Ints(lockOrder)

	now := s.now()
	sale := &models.Sale{
		EmployeeID:    req.EmployeeID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Status:        models.SaleStatusCompleted,
		Notes:         req.Notes,
		SoldAt:        now,
	}

	err := s.tx.Run(ctx, func(r repository.Repos) error {
		if req.EmployeeID != nil {
			if _, err := r.Employees.GetByID(ctx, *req.EmployeeID); err != nil {
				if isNotFound(err) {
					return utils.NewValidationError("employee_id", "does not exist")
				}
				return fmt.Errorf("get employee: %w", err)
			}
		}

		products := make(map[int]*models.Product, len(lockOrder))
		verr := &utils.ValidationError{}
		for _, id := range lockOrder {
			p, err := r.Products.LockByID(ctx, id)
			if err != nil {
				if isNotFound(err) {
					verr.Add(itemField(req, id), "product does not exist")
					continue
				}
				return fmt.Errorf("lock product: %w", err)
			}
			switch {
			case !p.IsActive:
				verr.Add(itemField(req, id), "product is not available")
			case p.StockQuantity < qty[id]:
				verr.Add(itemField(req, id), fmt.Sprintf("only %d in stock", p.StockQuantity))
			}
			products[id] = p
		}
		if len(verr.Fields) > 0 {
			return verr
		}

		n, err := r.Sequences.Next(ctx, "SALE"+now.Format("20060102"))
		if err != nil {
			return fmt.Errorf("next sale sequence: %w", err)
		}
		sale.SaleCode = SaleCode(now, n)

		total := decimal.Zero
		for _, id := range order {
			p := products[id]
			item := models.SaleItem{
				ProductID:   id,
				ProductName: p.Name,
				Quantity:    qty[id],
				UnitPrice:   p.SellingPrice,
				Subtotal:    p.SellingPrice.Mul(decimal.NewFromInt(int64(qty[id]))).Round(2),
			}
			total = total.Add(item.Subtotal)
			sale.Items = append(sale.Items, item)
		}
		sale.TotalAmount = total

		if err := r.Sales.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		for i := range sale.Items {
			sale.Items[i].SaleID = sale.ID
			if err := r.Sales.CreateItem(ctx, &sale.Items[i]); err != nil {
				return fmt.Errorf("create sale item: %w", err)
			}
			if err := r.Products.AdjustStock(ctx, sale.Items[i].ProductID, -sale.Items[i].Quantity); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("sale_id", sale.ID).Str("code", sale.SaleCode).Str("total", sale.TotalAmount.String()).Msg("Sale recorded")
	s.cache.Invalidate(ctx)
	return sale, nil
}

// Cancel marks a completed sale cancelled and puts its items back in stock.
func (s *SaleService) Cancel(ctx context.Context, id int) (*models.Sale, error) {
	var sale *models.Sale
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		var err error
		sale, err = r.Sales.LockByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "lock sale")
		}
		if sale.Status == models.SaleStatusCancelled {
			return utils.ErrSaleAlreadyCanceled
		}
		if sale.Items, err = r.Sales.ListItems(ctx, id); err != nil {
			return fmt.Errorf("list sale items: %w", err)
		}
		for _, it := range sale.Items {
			if err := r.Products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil && !isNotFound(err) {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		if err := r.Sales.UpdateStatus(ctx, id, models.SaleStatusCancelled); err != nil {
			return fmt.Errorf("update sale status: %w", err)
		}
		sale.Status = models.SaleStatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("sale_id", id).Msg("Sale cancelled")
	s.cache.Invalidate(ctx)
	return sale, nil
}

// Get returns a sale with its items.
func (s *SaleService) Get(ctx context.Context, id int) (*models.Sale, error) {
	sale, err := s.repos.Sales.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get sale")
	}
	if sale.Items, err = s.repos.Sales.ListItems(ctx, id); err != nil {
		return nil, fmt.Errorf("list sale items: %w", err)
	}
	return sale, nil
}

// List returns a filtered page of sales without items.
func (s *SaleService) List(ctx context.Context, f repository.SaleFilter) ([]models.Sale, int, error) {
	sales, total, err := s.repos.Sales.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}
	return sales, total, nil
}

// Dashboard returns today's figures in the server's local time zone.
func (s *SaleService) Dashboard(ctx context.Context) (*models.DashboardSummary, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	sum, err := s.repos.Dashboard.Summary(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return sum, nil
}

func validateSaleRequest(req *CreateSaleRequest) error {
	verr := &utils.ValidationError{}
	if len(req.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, it := range req.Items {
		if it.ProductID <= 0 {
			verr.Add(fmt.Sprintf("items.%d.product_id", i), "is required")
		}
		if it.Quantity <= 0 {
			verr.Add(fmt.Sprintf("items.%d.quantity", i), "must be at least 1")
		}
	}
	switch models.PaymentMethod(req.PaymentMethod) {
	case models.PaymentCash, models.PaymentCard, models.PaymentTransfer:
	default:
		verr.Add("payment_method", "must be one of: cash, card, transfer")
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// itemField names the first request line for productID.
func itemField(req *CreateSaleRequest, productID int) string {
	for i, it := range req.Items {
		if it.ProductID == productID {
			return fmt.Sprintf("items.%d.product_id", i)
		}
	}
	return "items"
}
