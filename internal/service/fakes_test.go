package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/storage"
)

// memDB is an in-memory stand-in for the PostgreSQL repositories. A single
// mutex plays the role of the product row lock.
type memDB struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	nextID    int
	admins    map[int]*models.AdminUser
	products  map[int]*models.Product
	images    map[int]*models.ProductImage
	employees map[int]*models.Employee
	sales     map[int]*models.Sale
	items     map[int][]models.SaleItem
	seq       map[string]int64

	failImageCreateAt int // fail the n-th image Create (1-based); 0 disables
	imageCreates      int
}

func newMemDB() *memDB {
	return &memDB{
		admins:    map[int]*models.AdminUser{},
		products:  map[int]*models.Product{},
		images:    map[int]*models.ProductImage{},
		employees: map[int]*models.Employee{},
		sales:     map[int]*models.Sale{},
		items:     map[int][]models.SaleItem{},
		seq:       map[string]int64{},
	}
}

func (m *memDB) id() int {
	m.nextID++
	return m.nextID
}

func (m *memDB) repos() repository.Repos {
	return repository.Repos{
		Admins:    memAdmins{m},
		Products:  memProducts{m},
		Images:    memImages{m},
		Employees: memEmployees{m},
		Sales:     memSales{m},
		Sequences: memSequences{m},
		Dashboard: memDashboard{m},
	}
}

// Run serialises transactions and restores product, image and sale state
// when fn fails.
func (m *memDB) Run(ctx context.Context, fn func(repository.Repos) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	products := cloneMap(m.products)
	images := cloneMap(m.images)
	sales := cloneMap(m.sales)
	m.mu.Unlock()

	if err := fn(m.repos()); err != nil {
		m.mu.Lock()
		m.products, m.images, m.sales = products, images, sales
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[T any](in map[int]*T) map[int]*T {
	out := make(map[int]*T, len(in))
	for k, v := range in {
		cp := *v
		out[k] = &cp
	}
	return out
}

func (m *memDB) addProduct(name string) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Product{ID: m.id(), Name: name, IsActive: true}
	m.products[p.ID] = p
	return p
}

// productImages returns a product's images ordered by sort_order, id.
func (m *memDB) productImages(productID int) []models.ProductImage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.productImagesLocked(productID)
}

func (m *memDB) productImagesLocked(productID int) []models.ProductImage {
	var out []models.ProductImage
	for _, img := range m.images {
		if img.ProductID == productID {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type memAdmins struct{ m *memDB }

func (a memAdmins) find(pred func(*models.AdminUser) bool) (*models.AdminUser, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	for _, u := range a.m.admins {
		if pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a memAdmins) GetActiveByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	return a.find(func(u *models.AdminUser) bool { return strings.EqualFold(u.Email, email) && u.IsActive })
}

func (a memAdmins) GetActiveByTokenHash(_ context.Context, h string) (*models.AdminUser, error) {
	return a.find(func(u *models.AdminUser) bool { return u.APIToken != nil && *u.APIToken == h && u.IsActive })
}

func (a memAdmins) GetByID(_ context.Context, id int) (*models.AdminUser, error) {
	return a.find(func(u *models.AdminUser) bool { return u.ID == id })
}

func (a memAdmins) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	return a.find(func(u *models.AdminUser) bool { return strings.EqualFold(u.Email, email) })
}

func (a memAdmins) SetToken(_ context.Context, id int, h string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	u, ok := a.m.admins[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now()
	u.APIToken = &h
	u.LastLoginAt = &now
	return nil
}

func (a memAdmins) ClearTokenByHash(_ context.Context, h string) (bool, error) {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	for _, u := range a.m.admins {
		if u.APIToken != nil && *u.APIToken == h {
			u.APIToken = nil
			u.RememberToken = nil
			return true, nil
		}
	}
	return false, nil
}

func (a memAdmins) UpdatePassword(_ context.Context, id int, hash string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	u, ok := a.m.admins[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (a memAdmins) Create(_ context.Context, user *models.AdminUser) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	user.ID = a.m.id()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	a.m.admins[user.ID] = &cp
	return nil
}

type memProducts struct{ m *memDB }

func (p memProducts) Create(_ context.Context, prod *models.Product) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	prod.ID = p.m.id()
	cp := *prod
	p.m.products[prod.ID] = &cp
	return nil
}

func (p memProducts) Update(_ context.Context, prod *models.Product) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.products[prod.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *prod
	cp.Images, cp.PrimaryImage = nil, nil
	p.m.products[prod.ID] = &cp
	return nil
}

func (p memProducts) GetByID(_ context.Context, id int) (*models.Product, error) {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	prod, ok := p.m.products[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *prod
	return &cp, nil
}

func (p memProducts) LockByID(ctx context.Context, id int) (*models.Product, error) {
	return p.GetByID(ctx, id)
}

func (p memProducts) sorted(pred func(*models.Product) bool) []models.Product {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	var out []models.Product
	for _, prod := range p.m.products {
		if pred(prod) {
			out = append(out, *prod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate[T any](all []T, pg, limit int) []T {
	start := (pg - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := min(start+limit, len(all))
	return all[start:end]
}

func (p memProducts) List(_ context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	all := p.sorted(func(prod *models.Product) bool {
		if f.IsActive != nil && prod.IsActive != *f.IsActive {
			return false
		}
		return f.Search == "" || strings.Contains(strings.ToLower(prod.Name), strings.ToLower(f.Search))
	})
	pg, limit := max(f.Page, 1), f.Limit
	if limit <= 0 {
		limit = repository.DefaultLimit
	}
	return paginate(all, pg, limit), len(all), nil
}

func (p memProducts) ListPublic(_ context.Context, pg, limit int) ([]models.Product, int, error) {
	all := p.sorted(func(prod *models.Product) bool { return prod.IsActive })
	return paginate(all, pg, limit), len(all), nil
}

func (p memProducts) ListLowStock(context.Context) ([]models.Product, error) {
	return p.sorted(func(prod *models.Product) bool { return prod.IsActive && prod.IsLowStock() }), nil
}

func (p memProducts) SetStock(_ context.Context, id, qty int) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	prod, ok := p.m.products[id]
	if !ok {
		return sql.ErrNoRows
	}
	prod.StockQuantity = qty
	return nil
}

func (p memProducts) AdjustStock(_ context.Context, id, delta int) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	prod, ok := p.m.products[id]
	if !ok {
		return sql.ErrNoRows
	}
	if prod.StockQuantity+delta < 0 {
		return errors.New("check constraint violated")
	}
	prod.StockQuantity += delta
	return nil
}

func (p memProducts) Delete(_ context.Context, id int) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if _, ok := p.m.products[id]; !ok {
		return sql.ErrNoRows
	}
	for _, items := range p.m.items {
		for _, it := range items {
			if it.ProductID == id {
				return &pq.Error{Code: "23503", Message: "sale_items_product_id_fkey"}
			}
		}
	}
	delete(p.m.products, id)
	return nil
}

type memImages struct{ m *memDB }

func (s memImages) ListByProduct(_ context.Context, productID int) ([]models.ProductImage, error) {
	out := s.m.productImages(productID)
	if out == nil {
		out = []models.ProductImage{}
	}
	return out, nil
}

func (s memImages) PrimaryByProducts(_ context.Context, ids []int) (map[int]models.ProductImage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[int]models.ProductImage{}
	for _, img := range s.m.images {
		if img.IsPrimary && want[img.ProductID] {
			out[img.ProductID] = *img
		}
	}
	return out, nil
}

func (s memImages) GetByID(_ context.Context, id int) (*models.ProductImage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img, ok := s.m.images[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *img
	return &cp, nil
}

func (s memImages) CountByProduct(_ context.Context, productID int) (int, error) {
	return len(s.m.productImages(productID)), nil
}

func (s memImages) Create(_ context.Context, img *models.ProductImage) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.imageCreates++
	if s.m.failImageCreateAt > 0 && s.m.imageCreates == s.m.failImageCreateAt {
		return errors.New("insert failed")
	}
	if img.IsPrimary {
		for _, other := range s.m.images {
			if other.ProductID == img.ProductID && other.IsPrimary {
				return errors.New("duplicate primary image")
			}
		}
	}
	img.ID = s.m.id()
	cp := *img
	s.m.images[img.ID] = &cp
	return nil
}

func (s memImages) SetPrimary(_ context.Context, productID, imageID int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	target, ok := s.m.images[imageID]
	if !ok || target.ProductID != productID {
		return sql.ErrNoRows
	}
	for _, img := range s.m.images {
		if img.ProductID == productID {
			img.IsPrimary = img.ID == imageID
		}
	}
	return nil
}

func (s memImages) PromoteFirstIfNoPrimary(_ context.Context, productID int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	list := s.m.productImagesLocked(productID)
	if len(list) == 0 {
		return nil
	}
	for _, img := range list {
		if img.IsPrimary {
			return nil
		}
	}
	s.m.images[list[0].ID].IsPrimary = true
	return nil
}

func (s memImages) DeleteByIDs(_ context.Context, productID int, ids []int) ([]models.ProductImage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.ProductImage{}
	for _, id := range ids {
		img, ok := s.m.images[id]
		if ok && img.ProductID == productID {
			out = append(out, *img)
			delete(s.m.images, id)
		}
	}
	return out, nil
}

func (s memImages) DeleteByProduct(_ context.Context, productID int) ([]models.ProductImage, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.ProductImage{}
	for id, img := range s.m.images {
		if img.ProductID == productID {
			out = append(out, *img)
			delete(s.m.images, id)
		}
	}
	return out, nil
}

func (s memImages) UpdateFile(_ context.Context, img *models.ProductImage) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	cur, ok := s.m.images[img.ID]
	if !ok || cur.ProductID != img.ProductID {
		return sql.ErrNoRows
	}
	cur.ImagePath, cur.ImageName, cur.FileSize, cur.MimeType = img.ImagePath, img.ImageName, img.FileSize, img.MimeType
	return nil
}

func (s memImages) UpdateSortOrder(_ context.Context, productID, imageID, order int) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img, ok := s.m.images[imageID]
	if !ok || img.ProductID != productID {
		return false, nil
	}
	img.SortOrder = order
	return true, nil
}

func (s memImages) UpdateAltText(_ context.Context, productID, imageID int, alt string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	img, ok := s.m.images[imageID]
	if !ok || img.ProductID != productID {
		return sql.ErrNoRows
	}
	img.AltText = alt
	return nil
}

func (s memImages) ReferencedPaths(_ context.Context, paths []string) (map[string]bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := map[string]bool{}
	for _, p := range paths {
		for _, img := range s.m.images {
			if img.ImagePath == p {
				out[p] = true
			}
		}
	}
	return out, nil
}

type memEmployees struct{ m *memDB }

func (e memEmployees) Create(_ context.Context, emp *models.Employee) error {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	emp.ID = e.m.id()
	cp := *emp
	e.m.employees[emp.ID] = &cp
	return nil
}

func (e memEmployees) Update(_ context.Context, emp *models.Employee) error {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	if _, ok := e.m.employees[emp.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *emp
	e.m.employees[emp.ID] = &cp
	return nil
}

func (e memEmployees) GetByID(_ context.Context, id int) (*models.Employee, error) {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	emp, ok := e.m.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *emp
	return &cp, nil
}

func (e memEmployees) List(_ context.Context, f repository.EmployeeFilter) ([]models.Employee, int, error) {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	out := []models.Employee{}
	for _, emp := range e.m.employees {
		out = append(out, *emp)
	}
	return out, len(out), nil
}

func (e memEmployees) Delete(_ context.Context, id int) error {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	if _, ok := e.m.employees[id]; !ok {
		return sql.ErrNoRows
	}
	delete(e.m.employees, id)
	return nil
}

type memSales struct{ m *memDB }

func (s memSales) Create(_ context.Context, sale *models.Sale) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sale.ID = s.m.id()
	cp := *sale
	cp.Items = nil
	s.m.sales[sale.ID] = &cp
	return nil
}

func (s memSales) CreateItem(_ context.Context, item *models.SaleItem) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	item.ID = s.m.id()
	s.m.items[item.SaleID] = append(s.m.items[item.SaleID], *item)
	return nil
}

func (s memSales) GetByID(_ context.Context, id int) (*models.Sale, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sale, ok := s.m.sales[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sale
	return &cp, nil
}

func (s memSales) LockByID(ctx context.Context, id int) (*models.Sale, error) {
	return s.GetByID(ctx, id)
}

func (s memSales) ListItems(_ context.Context, saleID int) ([]models.SaleItem, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return append([]models.SaleItem{}, s.m.items[saleID]...), nil
}

func (s memSales) List(_ context.Context, _ repository.SaleFilter) ([]models.Sale, int, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	out := []models.Sale{}
	for _, sale := range s.m.sales {
		out = append(out, *sale)
	}
	return out, len(out), nil
}

func (s memSales) UpdateStatus(_ context.Context, id int, status models.SaleStatus) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	sale, ok := s.m.sales[id]
	if !ok {
		return sql.ErrNoRows
	}
	sale.Status = status
	return nil
}

type memSequences struct{ m *memDB }

func (s memSequences) Next(_ context.Context, name string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.seq[name]++
	return s.m.seq[name], nil
}

type memDashboard struct{ m *memDB }

func (d memDashboard) Summary(_ context.Context, from, to time.Time) (*models.DashboardSummary, error) {
	d.m.mu.Lock()
	defer d.m.mu.Unlock()
	sum := &models.DashboardSummary{ProductCount: len(d.m.products)}
	for _, p := range d.m.products {
		if p.IsActive && p.IsLowStock() {
			sum.LowStockCount++
		}
	}
	for _, e := range d.m.employees {
		if e.IsActive {
			sum.EmployeeCount++
		}
	}
	for _, s := range d.m.sales {
		if s.Status == models.SaleStatusCompleted && !s.SoldAt.Before(from) && s.SoldAt.Before(to) {
			sum.TodaySales++
			sum.TodayRevenue = sum.TodayRevenue.Add(s.TotalAmount)
		}
	}
	return sum, nil
}

// memDisk is an in-memory storage.Disk.
type memDisk struct {
	mu       sync.Mutex
	files    map[string][]byte
	modTimes map[string]time.Time
	failPut  int // fail the n-th Put (1-based); 0 disables
	puts     int
}

var _ storage.Disk = (*memDisk)(nil)

func newMemDisk() *memDisk {
	return &memDisk{files: map[string][]byte{}, modTimes: map[string]time.Time{}}
}

func (d *memDisk) Put(_ context.Context, p string, r io.Reader, _ int64, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.puts++
	if d.failPut > 0 && d.puts == d.failPut {
		return errors.New("disk full")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	d.files[p] = b
	d.modTimes[p] = time.Now()
	return nil
}

func (d *memDisk) Delete(_ context.Context, p string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, p)
	delete(d.modTimes, p)
	return nil
}

func (d *memDisk) Exists(_ context.Context, p string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[p]
	return ok, nil
}

func (d *memDisk) List(_ context.Context, prefix string) ([]storage.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []storage.FileInfo
	for p, b := range d.files {
		if strings.HasPrefix(p, prefix+"/") {
			out = append(out, storage.FileInfo{Path: p, Size: int64(len(b)), ModTime: d.modTimes[p]})
		}
	}
	return out, nil
}

func (d *memDisk) URL(p string) string { return "/storage/" + p }

func (d *memDisk) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

// pngBytes is a minimal PNG header that mimetype detects as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func fileOf(name string, data []byte) FileInput {
	return FileInput{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func pngFile(name string) FileInput { return fileOf(name, pngBytes) }
