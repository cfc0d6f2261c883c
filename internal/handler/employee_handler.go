package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// Employees is the employee surface used by EmployeeHandler.
type Employees interface {
	Create(ctx context.Context, req *service.EmployeeRequest) (*models.Employee, error)
	Update(ctx context.Context, id int, req *service.EmployeeRequest) (*models.Employee, error)
	Get(ctx context.Context, id int) (*models.Employee, error)
	List(ctx context.Context, f repository.EmployeeFilter) ([]models.Employee, int, error)
	Delete(ctx context.Context, id int) error
}

type EmployeeHandler struct {
	employeeService Employees
}

func NewEmployeeHandler(employeeService Employees) *EmployeeHandler {
	return &EmployeeHandler{employeeService: employeeService}
}

// List handles GET /admin/employees
func (h *EmployeeHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	filter := repository.EmployeeFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		IsActive: boolQuery(c, "is_active"),
		Page:     page,
		Limit:    limit,
	}

	employees, total, err := h.employeeService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Employees retrieved", employees, page, limit, total)
}

// Create handles POST /admin/employees
func (h *EmployeeHandler) Create(c *gin.Context) {
	var req service.EmployeeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	employee, err := h.employeeService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Employee created successfully", employee)
}

// Get handles GET /admin/employees/:id
func (h *EmployeeHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	employee, err := h.employeeService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Employee retrieved", employee)
}

// Update handles PUT /admin/employees/:id
func (h *EmployeeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.EmployeeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	employee, err := h.employeeService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Employee updated successfully", employee)
}

// Delete handles DELETE /admin/employees/:id
func (h *EmployeeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.employeeService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Employee deleted successfully", nil)
}
