package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

const dateLayout = "2006-01-02"

// EmployeeService handles employee records.
type EmployeeService struct {
	repos repository.Repos
	tx    repository.TxRunner
	now   func() time.Time
}

// NewEmployeeService constructs an EmployeeService.
func NewEmployeeService(repos repository.Repos, tx repository.TxRunner) *EmployeeService {
	return &EmployeeService{repos: repos, tx: tx, now: time.Now}
}

// EmployeeRequest is the body of employee create and update.
type EmployeeRequest struct {
	Name     string           `json:"name" validate:"required,max=255"`
	Email    *string          `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string          `json:"phone" validate:"omitempty,max=32"`
	Position string           `json:"position" validate:"omitempty,max=100"`
	Salary   *decimal.Decimal `json:"salary" validate:"omitempty,gte=0"`
	HireDate string           `json:"hire_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive *bool            `json:"is_active"`
}

func (r *EmployeeRequest) apply(e *models.Employee, today time.Time) error {
	verr := &utils.ValidationError{}
	if strings.TrimSpace(r.Name) == "" {
		verr.Add("name", "is required")
	}
	if r.Salary != nil && r.Salary.IsNegative() {
		verr.Add("salary", "must be at least 0")
	}
	hire := today
	if r.HireDate != "" {
		d, err := time.Parse(dateLayout, r.HireDate)
		if err != nil {
			verr.Add("hire_date", "must be a date in YYYY-MM-DD format")
		}
		hire = d
	} else if !e.HireDate.IsZero() {
		hire = e.HireDate
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	e.Name = strings.TrimSpace(r.Name)
	e.Email = emptyToNil(r.Email)
	e.Phone = emptyToNil(r.Phone)
	e.Position = r.Position
	if r.Salary != nil {
		e.Salary = r.Salary.Round(2)
	}
	e.HireDate = hire
	if r.IsActive != nil {
		e.IsActive = *r.IsActive
	}
	return nil
}

// EmployeeCode formats the code for the n-th employee hired in year.
func EmployeeCode(year int, n int64) string {
	return fmt.Sprintf("EMP%04d%04d", year, n)
}

// Create adds an employee with a freshly issued EMP<year><seq> code.
func (s *EmployeeService) Create(ctx context.Context, req *EmployeeRequest) (*models.Employee, error) {
	now := s.now()
	e := &models.Employee{IsActive: true}
	if err := req.apply(e, now); err != nil {
		return nil, err
	}

	err := s.tx.Run(ctx, func(r repository.Repos) error {
		n, err := r.Sequences.Next(ctx, fmt.Sprintf("EMP%04d", now.Year()))
		if err != nil {
			return fmt.Errorf("next employee sequence: %w", err)
		}
		e.EmployeeCode = EmployeeCode(now.Year(), n)
		if err := r.Employees.Create(ctx, e); err != nil {
			if repository.IsUniqueViolation(err) {
				return utils.NewValidationError("email", "has already been taken")
			}
			return fmt.Errorf("create employee: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("employee_id", e.ID).Str("code", e.EmployeeCode).Msg("Employee created")
	return e, nil
}

// Update overwrites an employee's editable fields.
func (s *EmployeeService) Update(ctx context.Context, id int, req *EmployeeRequest) (*models.Employee, error) {
	e, err := s.repos.Employees.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get employee")
	}
	if err := req.apply(e, s.now()); err != nil {
		return nil, err
	}
	if err := s.repos.Employees.Update(ctx, e); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, utils.NewValidationError("email", "has already been taken")
		}
		return nil, notFoundOr(err, "update employee")
	}
	return e, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id int) (*models.Employee, error) {
	e, err := s.repos.Employees.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "get employee")
	}
	return e, nil
}

// List returns a filtered page of employees.
func (s *EmployeeService) List(ctx context.Context, f repository.EmployeeFilter) ([]models.Employee, int, error) {
	employees, total, err := s.repos.Employees.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}
	return employees, total, nil
}

// Delete removes an employee; their past sales are kept.
func (s *EmployeeService) Delete(ctx context.Context, id int) error {
	if err := s.repos.Employees.Delete(ctx, id); err != nil {
		return notFoundOr(err, "delete employee")
	}
	log.Info().Int("employee_id", id).Msg("Employee deleted")
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
