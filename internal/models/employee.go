package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a staff member; EmployeeCode has the form EMP<year><seq>.
type Employee struct {
	ID           int             `db:"id" json:"id"`
	EmployeeCode string          `db:"employee_code" json:"employee_code"`
	Name         string          `db:"name" json:"name"`
	Email        *string         `db:"email" json:"email,omitempty"`
	Phone        *string         `db:"phone" json:"phone,omitempty"`
	Position     string          `db:"position" json:"position"`
	Salary       decimal.Decimal `db:"salary" json:"salary"`
	HireDate     time.Time       `db:"hire_date" json:"hire_date"`
	IsActive     bool            `db:"is_active" json:"is_active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}
