package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

func newProductService(t *testing.T) (*ProductService, *ProductImageService, *memDB, *memDisk) {
	t.Helper()
	db := newMemDB()
	disk := newMemDisk()
	return NewProductService(db.repos(), db, disk, nil, "IDR"),
		NewProductImageService(db.repos(), db, disk, nil, testLimits),
		db, disk
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestProductCreate_ComputesMargin(t *testing.T) {
	svc, _, _, _ := newProductService(t)

	p, err := svc.Create(context.Background(), &ProductRequest{
		Name:         "Kopi Gayo 250g",
		CostPrice:    dec("1500000"),
		SellingPrice: dec("2000000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "25.00", p.ProfitMargin.StringFixed(2))
	assert.Equal(t, "IDR", p.Currency)
	assert.Equal(t, "pcs", p.UnitOfMeasure)
	assert.True(t, p.IsActive)
}

func TestProductCreate_Validation(t *testing.T) {
	svc, _, _, _ := newProductService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   ProductRequest
		field string
	}{
		{"selling not above cost", ProductRequest{Name: "A", CostPrice: dec("100"), SellingPrice: dec("100")}, "selling_price"},
		{"missing name", ProductRequest{CostPrice: dec("1"), SellingPrice: dec("2")}, "name"},
		{"negative cost", ProductRequest{Name: "A", CostPrice: dec("-1"), SellingPrice: dec("2")}, "cost_price"},
		{"missing selling", ProductRequest{Name: "A", CostPrice: dec("1")}, "selling_price"},
		{"bad currency", ProductRequest{Name: "A", CostPrice: dec("1"), SellingPrice: dec("2"), Currency: "RUPIAH"}, "currency"},
		{"negative stock", ProductRequest{Name: "A", CostPrice: dec("1"), SellingPrice: dec("2"), StockQuantity: -1}, "stock_quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &tt.req)
			var verr *utils.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestProductUpdate_RecomputesMargin(t *testing.T) {
	svc, _, _, _ := newProductService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{Name: "Teh", CostPrice: dec("50"), SellingPrice: dec("100")})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, p.ID, &ProductRequest{
		Name: "Teh Melati", CostPrice: dec("75"), SellingPrice: dec("100"), IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "25.00", updated.ProfitMargin.StringFixed(2))
	assert.False(t, updated.IsActive)

	_, err = svc.Update(ctx, 9999, &ProductRequest{Name: "X", CostPrice: dec("1"), SellingPrice: dec("2")})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestProductGet_IncludesImagesAndPrimary(t *testing.T) {
	svc, images, db, _ := newProductService(t)
	ctx := context.Background()
	p := db.addProduct("Gula")

	_, err := images.Store(ctx, p.ID, pngFiles(2))
	require.NoError(t, err)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 2)
	require.NotNil(t, got.PrimaryImage)
	assert.Equal(t, got.Images[0].ID, got.PrimaryImage.ID)
	assert.NotEmpty(t, got.PrimaryImage.ImageURL)
}

func TestProductDelete_RemovesRowsThenFiles(t *testing.T) {
	svc, images, db, disk := newProductService(t)
	ctx := context.Background()
	p := db.addProduct("Beras")

	_, err := images.Store(ctx, p.ID, pngFiles(3))
	require.NoError(t, err)
	require.Equal(t, 3, disk.count())

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, 0, disk.count())
	assert.Empty(t, db.productImages(p.ID))

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), utils.ErrNotFound)
}

func TestProductDelete_SoldProductIsKept(t *testing.T) {
	svc, images, db, disk := newProductService(t)
	sales := NewSaleService(db.repos(), db, nil)
	ctx := context.Background()
	p := db.addProduct("Gula")
	db.products[p.ID].SellingPrice = decimal.RequireFromString("15000")
	db.products[p.ID].StockQuantity = 4

	_, err := images.Store(ctx, p.ID, pngFiles(2))
	require.NoError(t, err)
	_, err = sales.Create(ctx, &CreateSaleRequest{
		PaymentMethod: "cash",
		Items:         []SaleItemRequest{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, p.ID)
	var verr *utils.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "product has recorded sales", verr.Fields["id"])

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 2)
	assert.Equal(t, 2, disk.count())
}

func TestListPublic_PagingAndPrimaryImage(t *testing.T) {
	svc, images, db, _ := newProductService(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		db.addProduct("P")
	}
	hidden := db.addProduct("Hidden")
	db.products[hidden.ID].IsActive = false

	first := db.products[1]
	_, err := images.Store(ctx, first.ID, pngFiles(2))
	require.NoError(t, err)

	page, err := svc.ListPublic(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 12, page.Limit)
	assert.Equal(t, 15, page.Total)
	assert.Len(t, page.Products, 12)
	require.NotNil(t, page.Products[0].PrimaryImage)
	assert.Nil(t, page.Products[1].PrimaryImage)

	page, err = svc.ListPublic(ctx, 2, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, page.Limit)
	assert.Empty(t, page.Products)
}

func TestUpdateStockAndLowStock(t *testing.T) {
	svc, _, _, _ := newProductService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, &ProductRequest{
		Name: "Susu", CostPrice: dec("10"), SellingPrice: dec("12"), StockQuantity: 20, ReorderLevel: 5,
	})
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	updated, err := svc.UpdateStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.StockQuantity)

	low, err = svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)

	_, err = svc.UpdateStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, utils.ErrValidationFailed)
}

func TestProductList_Filters(t *testing.T) {
	svc, _, _, _ := newProductService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, &ProductRequest{Name: "Kopi Arabika", CostPrice: dec("1"), SellingPrice: dec("2")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &ProductRequest{Name: "Teh Hijau", CostPrice: dec("1"), SellingPrice: dec("2")})
	require.NoError(t, err)

	products, total, err := svc.List(ctx, repository.ProductFilter{Search: "kopi"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Kopi Arabika", products[0].Name)
}
