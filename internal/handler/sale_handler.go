package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// Sales is the sales surface used by SaleHandler.
type Sales interface {
	Create(ctx context.Context, req *service.CreateSaleRequest) (*models.Sale, error)
	Cancel(ctx context.Context, id int) (*models.Sale, error)
	Get(ctx context.Context, id int) (*models.Sale, error)
	List(ctx context.Context, f repository.SaleFilter) ([]models.Sale, int, error)
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
}

// SaleHandler handles sales and the dashboard summary.
type SaleHandler struct {
	saleService Sales
}

// NewSaleHandler constructs a SaleHandler.
func NewSaleHandler(saleService Sales) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// List handles GET /admin/sales?from=YYYY-MM-DD&to=YYYY-MM-DD&status=
// Both dates are inclusive local days.
func (h *SaleHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	filter := repository.SaleFilter{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	}

	fields := map[string]string{}
	if v := c.Query("from"); v != "" {
		if d, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			filter.From = &d
		} else {
			fields["from"] = "Must be a date formatted as 2006-01-02"
		}
	}
	if v := c.Query("to"); v != "" {
		if d, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			end := d.AddDate(0, 0, 1)
			filter.To = &end
		} else {
			fields["to"] = "Must be a date formatted as 2006-01-02"
		}
	}
	if filter.Status != "" && filter.Status != string(models.SaleStatusCompleted) && filter.Status != string(models.SaleStatusCancelled) {
		fields["status"] = "Must be one of: completed, cancelled"
	}
	if len(fields) > 0 {
		utils.ValidationFailed(c, fields)
		return
	}

	sales, total, err := h.saleService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Sales retrieved", sales, page, limit, total)
}

// Create handles POST /admin/sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req service.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	sale, err := h.saleService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Sale recorded successfully", sale)
}

// Get handles GET /admin/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Sale retrieved", sale)
}

// Cancel handles POST /admin/sales/:id/cancel
func (h *SaleHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sale, err := h.saleService.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Sale cancelled successfully", sale)
}

// Dashboard handles GET /admin/dashboard
func (h *SaleHandler) Dashboard(c *gin.Context) {
	summary, err := h.saleService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Dashboard summary", summary)
}
