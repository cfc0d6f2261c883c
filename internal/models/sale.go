package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus enumerates the lifecycle states of a sale.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Sale is a ledger header; SaleCode has the form SALE<yyyymmdd><seq>.
type Sale struct {
	ID            int             `db:"id" json:"id"`
	SaleCode      string          `db:"sale_code" json:"sale_code"`
	EmployeeID    *int            `db:"employee_id" json:"employee_id,omitempty"`
	CustomerName  string          `db:"customer_name" json:"customer_name"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status        SaleStatus      `db:"status" json:"status"`
	Notes         string          `db:"notes" json:"notes"`
	SoldAt        time.Time       `db:"sold_at" json:"sold_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Items []SaleItem `db:"-" json:"items,omitempty"`
}

// SaleItem is one line of a sale. UnitPrice is a snapshot of the product's
// selling price at the time of sale.
type SaleItem struct {
	ID          int             `db:"id" json:"id"`
	SaleID      int             `db:"sale_id" json:"sale_id"`
	ProductID   int             `db:"product_id" json:"product_id"`
	ProductName string          `db:"product_name" json:"product_name"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
}

// DashboardSummary aggregates the figures shown on the admin landing page.
type DashboardSummary struct {
	ProductCount  int             `db:"product_count" json:"product_count"`
	LowStockCount int             `db:"low_stock_count" json:"low_stock_count"`
	EmployeeCount int             `db:"employee_count" json:"employee_count"`
	TodaySales    int             `db:"today_sales" json:"today_sales"`
	TodayRevenue  decimal.Decimal `db:"today_revenue" json:"today_revenue"`
}
