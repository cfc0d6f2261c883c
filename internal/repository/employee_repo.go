package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const employeeColumns = `id, employee_code, name, email, phone, position, salary, hire_date, is_active,
	created_at, updated_at`

// EmployeeRepository handles data access for employees.
type EmployeeRepository struct {
	db sqlx.ExtContext
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(db sqlx.ExtContext) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts an employee; EmployeeCode must already be assigned.
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	const q = `
		INSERT INTO employees (employee_code, name, email, phone, position, salary, hire_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		e.EmployeeCode, e.Name, e.Email, e.Phone, e.Position, e.Salary, e.HireDate, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update overwrites the editable columns. The code never changes.
func (r *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	const q = `
		UPDATE employees SET
			name = $2, email = $3, phone = $4, position = $5, salary = $6, hire_date = $7,
			is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q,
		e.ID, e.Name, e.Email, e.Phone, e.Position, e.Salary, e.HireDate, e.IsActive,
	).Scan(&e.UpdatedAt)
}

// GetByID returns an employee, or sql.ErrNoRows.
func (r *EmployeeRepository) GetByID(ctx context.Context, id int) (*models.Employee, error) {
	var e models.Employee
	q := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &e, q, id); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns a filtered page of employees and the total count.
func (r *EmployeeRepository) List(ctx context.Context, f EmployeeFilter) ([]models.Employee, int, error) {
	_, limit, offset := normalizePage(f.Page, f.Limit)

	const baseWhere = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR employee_code ILIKE '%' || $1 || '%')
		AND ($2::boolean IS NULL OR is_active = $2)`

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(1) FROM employees `+baseWhere, f.Search, f.IsActive); err != nil {
		return nil, 0, err
	}

	employees := []models.Employee{}
	q := `SELECT ` + employeeColumns + ` FROM employees ` + baseWhere + `
		ORDER BY name, id LIMIT $3 OFFSET $4`
	if err := sqlx.SelectContext(ctx, r.db, &employees, q, f.Search, f.IsActive, limit, offset); err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

// Delete removes an employee. Their sales keep a NULL employee_id.
func (r *EmployeeRepository) Delete(ctx context.Context, id int) error {
	return execAffectingOne(ctx, r.db, `DELETE FROM employees WHERE id = $1`, id)
}
