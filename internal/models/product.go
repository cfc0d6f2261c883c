package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable item in the catalogue.
// Fields are tagged for both DB scanning and JSON serialization.
type Product struct {
	ID            int             `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	CostPrice     decimal.Decimal `db:"cost_price" json:"cost_price"`
	SellingPrice  decimal.Decimal `db:"selling_price" json:"selling_price"`
	Currency      string          `db:"currency" json:"currency"`
	ProfitMargin  decimal.Decimal `db:"profit_margin" json:"profit_margin"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	ReorderLevel  int             `db:"reorder_level" json:"reorder_level"`
	UnitOfMeasure string          `db:"unit_of_measure" json:"unit_of_measure"`
	Description   string          `db:"description" json:"description"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Images       []ProductImage `db:"-" json:"images,omitempty"`
	PrimaryImage *ProductImage  `db:"-" json:"primary_image,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// ComputeProfitMargin returns (selling - cost) / selling * 100 rounded to two
// decimals. A non-positive selling price yields zero.
func ComputeProfitMargin(cost, selling decimal.Decimal) decimal.Decimal {
	if !selling.IsPositive() {
		return decimal.Zero
	}
	return selling.Sub(cost).Div(selling).Mul(hundred).Round(2)
}

// RecalculateMargin refreshes the derived profit margin. Called before every save.
func (p *Product) RecalculateMargin() {
	p.ProfitMargin = ComputeProfitMargin(p.CostPrice, p.SellingPrice)
}

// IsLowStock reports whether stock has dropped to the reorder level.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.ReorderLevel
}
