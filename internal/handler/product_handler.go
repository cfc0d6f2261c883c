package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// ProductCatalogue is the product surface used by ProductHandler.
type ProductCatalogue interface {
	Create(ctx context.Context, req *service.ProductRequest) (*models.Product, error)
	Update(ctx context.Context, id int, req *service.ProductRequest) (*models.Product, error)
	Get(ctx context.Context, id int) (*models.Product, error)
	List(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error)
	LowStock(ctx context.Context) ([]models.Product, error)
	UpdateStock(ctx context.Context, id, quantity int) (*models.Product, error)
	Delete(ctx context.Context, id int) error
	ListPublic(ctx context.Context, page, limit int) (*service.PublicPage, error)
}

// ProductHandler handles product CRUD and the public listing.
type ProductHandler struct {
	productService ProductCatalogue
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(productService ProductCatalogue) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// List handles GET /admin/products
func (h *ProductHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	filter := repository.ProductFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		IsActive: boolQuery(c, "is_active"),
		Page:     page,
		Limit:    limit,
	}

	products, total, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Products retrieved", products, page, limit, total)
}

// Create handles POST /admin/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Product created successfully", product)
}

// Get handles GET /admin/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product retrieved", product)
}

// Update handles PUT /admin/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.productService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product updated successfully", product)
}

// UpdateStock handles PATCH /admin/products/:id/stock
func (h *ProductHandler) UpdateStock(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.StockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	product, err := h.productService.UpdateStock(c.Request.Context(), id, *req.StockQuantity)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Stock updated successfully", product)
}

// LowStock handles GET /admin/products/low-stock
func (h *ProductHandler) LowStock(c *gin.Context) {
	products, err := h.productService.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Low stock products retrieved", products)
}

// Delete handles DELETE /admin/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Product deleted successfully", nil)
}

// ListPublic handles GET /products/public
func (h *ProductHandler) ListPublic(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.productService.ListPublic(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Products retrieved", result.Products, result.Page, result.Limit, result.Total)
}
