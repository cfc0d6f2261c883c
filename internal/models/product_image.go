package models

import "time"

// ProductImage is one stored picture of a product.
// At most one image per product has IsPrimary set.
type ProductImage struct {
	ID        int       `db:"id" json:"id"`
	ProductID int       `db:"product_id" json:"product_id"`
	ImagePath string    `db:"image_path" json:"image_path"`
	ImageName string    `db:"image_name" json:"image_name"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	MimeType  string    `db:"mime_type" json:"mime_type"`
	IsPrimary bool      `db:"is_primary" json:"is_primary"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	AltText   string    `db:"alt_text" json:"alt_text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// ImageURL is resolved from ImagePath by the storage disk; not persisted.
	ImageURL string `db:"-" json:"image_url"`
}
