package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const imageColumns = `id, product_id, image_path, image_name, file_size, mime_type, is_primary,
	sort_order, alt_text, created_at, updated_at`

// ProductImageRepository handles data access for product images.
// Mutations are expected to run in a transaction that holds the product row lock.
type ProductImageRepository struct {
	db sqlx.ExtContext
}

// NewProductImageRepository creates a new ProductImageRepository.
func NewProductImageRepository(db sqlx.ExtContext) *ProductImageRepository {
	return &ProductImageRepository{db: db}
}

// ListByProduct returns a product's images in display order.
func (r *ProductImageRepository) ListByProduct(ctx context.Context, productID int) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	q := `SELECT ` + imageColumns + ` FROM product_images WHERE product_id = $1 ORDER BY sort_order, id`
	if err := sqlx.SelectContext(ctx, r.db, &images, q, productID); err != nil {
		return nil, err
	}
	return images, nil
}

// PrimaryByProducts returns the primary image of each listed product that has one.
func (r *ProductImageRepository) PrimaryByProducts(ctx context.Context, productIDs []int) (map[int]models.ProductImage, error) {
	out := make(map[int]models.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var images []models.ProductImage
	q := `SELECT ` + imageColumns + ` FROM product_images WHERE is_primary AND product_id = ANY($1)`
	if err := sqlx.SelectContext(ctx, r.db, &images, q, intArray(productIDs)); err != nil {
		return nil, err
	}
	for _, img := range images {
		out[img.ProductID] = img
	}
	return out, nil
}

// GetByID returns an image by id, or sql.ErrNoRows.
func (r *ProductImageRepository) GetByID(ctx context.Context, id int) (*models.ProductImage, error) {
	var img models.ProductImage
	q := `SELECT ` + imageColumns + ` FROM product_images WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &img, q, id); err != nil {
		return nil, err
	}
	return &img, nil
}

// CountByProduct returns how many images a product has.
func (r *ProductImageRepository) CountByProduct(ctx context.Context, productID int) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, `SELECT COUNT(1) FROM product_images WHERE product_id = $1`, productID)
	return n, err
}

// Create inserts an image row and fills id and timestamps.
func (r *ProductImageRepository) Create(ctx context.Context, img *models.ProductImage) error {
	const q = `
		INSERT INTO product_images (product_id, image_path, image_name, file_size, mime_type,
			is_primary, sort_order, alt_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, q,
		img.ProductID, img.ImagePath, img.ImageName, img.FileSize, img.MimeType,
		img.IsPrimary, img.SortOrder, img.AltText,
	).Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt)
}

// SetPrimary makes imageID the only primary image of productID. The current
// primary is cleared first so the partial unique index never sees two.
func (r *ProductImageRepository) SetPrimary(ctx context.Context, productID, imageID int) error {
	const clear = `UPDATE product_images SET is_primary = false, updated_at = NOW()
		WHERE product_id = $1 AND is_primary AND id <> $2`
	if _, err := r.db.ExecContext(ctx, clear, productID, imageID); err != nil {
		return err
	}
	const set = `UPDATE product_images SET is_primary = true, updated_at = NOW()
		WHERE product_id = $1 AND id = $2`
	return execAffectingOne(ctx, r.db, set, productID, imageID)
}

// PromoteFirstIfNoPrimary marks the first image by (sort_order, id) as primary
// when the product has images but none is primary.
func (r *ProductImageRepository) PromoteFirstIfNoPrimary(ctx context.Context, productID int) error {
	const q = `
		UPDATE product_images SET is_primary = true, updated_at = NOW()
		WHERE id = (
			SELECT id FROM product_images WHERE product_id = $1
			ORDER BY sort_order, id LIMIT 1
		)
		AND NOT EXISTS (SELECT 1 FROM product_images WHERE product_id = $1 AND is_primary)`
	_, err := r.db.ExecContext(ctx, q, productID)
	return err
}

// DeleteByIDs deletes the product's images among imageIDs and returns the
// deleted rows. Ids of other products are ignored.
func (r *ProductImageRepository) DeleteByIDs(ctx context.Context, productID int, imageIDs []int) ([]models.ProductImage, error) {
	deleted := []models.ProductImage{}
	q := `DELETE FROM product_images WHERE product_id = $1 AND id = ANY($2) RETURNING ` + imageColumns
	if err := sqlx.SelectContext(ctx, r.db, &deleted, q, productID, intArray(imageIDs)); err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteByProduct deletes every image of a product and returns the deleted rows.
func (r *ProductImageRepository) DeleteByProduct(ctx context.Context, productID int) ([]models.ProductImage, error) {
	deleted := []models.ProductImage{}
	q := `DELETE FROM product_images WHERE product_id = $1 RETURNING ` + imageColumns
	if err := sqlx.SelectContext(ctx, r.db, &deleted, q, productID); err != nil {
		return nil, err
	}
	return deleted, nil
}

// UpdateFile points an image row at a new stored file. Primary flag, sort
// order and alt text are left as they are.
func (r *ProductImageRepository) UpdateFile(ctx context.Context, img *models.ProductImage) error {
	const q = `
		UPDATE product_images
		SET image_path = $3, image_name = $4, file_size = $5, mime_type = $6, updated_at = NOW()
		WHERE id = $1 AND product_id = $2
		RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, q,
		img.ID, img.ProductID, img.ImagePath, img.ImageName, img.FileSize, img.MimeType,
	).Scan(&img.UpdatedAt)
}

// UpdateSortOrder sets one image's position. It reports false when the image
// does not belong to productID.
func (r *ProductImageRepository) UpdateSortOrder(ctx context.Context, productID, imageID, sortOrder int) (bool, error) {
	const q = `UPDATE product_images SET sort_order = $3, updated_at = NOW() WHERE id = $2 AND product_id = $1`
	res, err := r.db.ExecContext(ctx, q, productID, imageID, sortOrder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateAltText sets the alt text of a product's image.
func (r *ProductImageRepository) UpdateAltText(ctx context.Context, productID, imageID int, altText string) error {
	const q = `UPDATE product_images SET alt_text = $3, updated_at = NOW() WHERE id = $2 AND product_id = $1`
	return execAffectingOne(ctx, r.db, q, productID, imageID, altText)
}

// ReferencedPaths reports which of paths are referenced by an image row.
func (r *ProductImageRepository) ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error) {
	out := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	var found []string
	q := `SELECT image_path FROM product_images WHERE image_path = ANY($1)`
	if err := sqlx.SelectContext(ctx, r.db, &found, q, pq.Array(paths)); err != nil {
		return nil, err
	}
	for _, p := range found {
		out[p] = true
	}
	return out, nil
}
