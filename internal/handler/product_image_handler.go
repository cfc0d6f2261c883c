package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/service"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// ProductImages is the image surface used by ProductImageHandler.
type ProductImages interface {
	List(ctx context.Context, productID int) ([]models.ProductImage, error)
	Store(ctx context.Context, productID int, files []service.FileInput) ([]models.ProductImage, error)
	SetPrimary(ctx context.Context, productID, imageID int) error
	Destroy(ctx context.Context, productID, imageID int) error
	DestroyMultiple(ctx context.Context, productID int, imageIDs []int) (int, error)
	Replace(ctx context.Context, productID, imageID int, file service.FileInput) (*models.ProductImage, error)
	Reorder(ctx context.Context, productID int, orderedIDs []int) ([]models.ProductImage, error)
	UpdateAltText(ctx context.Context, productID, imageID int, altText string) (*models.ProductImage, error)
}

// ProductImageHandler handles /admin/products/:id/images endpoints.
type ProductImageHandler struct {
	imageService ProductImages
}

// NewProductImageHandler constructs a ProductImageHandler.
func NewProductImageHandler(imageService ProductImages) *ProductImageHandler {
	return &ProductImageHandler{imageService: imageService}
}

// List handles GET /admin/products/:id/images
func (h *ProductImageHandler) List(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	images, err := h.imageService.List(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Images retrieved", images)
}

// Store handles POST /admin/products/:id/images (multipart images[])
func (h *ProductImageHandler) Store(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = append(form.File["images[]"], form.File["images"]...)
	}

	images, err := h.imageService.Store(c.Request.Context(), productID, fileInputs(headers))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Images uploaded successfully", images)
}

// SetPrimary handles PUT /admin/products/:id/images/:image/set-primary
func (h *ProductImageHandler) SetPrimary(c *gin.Context) {
	productID, imageID, ok := imageParams(c)
	if !ok {
		return
	}
	if err := h.imageService.SetPrimary(c.Request.Context(), productID, imageID); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Primary image updated successfully", nil)
}

// Destroy handles DELETE /admin/products/:id/images/:image
func (h *ProductImageHandler) Destroy(c *gin.Context) {
	productID, imageID, ok := imageParams(c)
	if !ok {
		return
	}
	if err := h.imageService.Destroy(c.Request.Context(), productID, imageID); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Image deleted successfully", nil)
}

type destroyMultipleRequest struct {
	ImageIDs []int `json:"image_ids" validate:"required,min=1,dive,gt=0"`
}

// DestroyMultiple handles DELETE /admin/products/:id/images/multiple
func (h *ProductImageHandler) DestroyMultiple(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req destroyMultipleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	n, err := h.imageService.DestroyMultiple(c.Request.Context(), productID, req.ImageIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Images deleted successfully", gin.H{"deleted": n})
}

// Replace handles PUT /admin/products/:id/images/:image/update (multipart image)
func (h *ProductImageHandler) Replace(c *gin.Context) {
	productID, imageID, ok := imageParams(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		utils.ValidationFailed(c, map[string]string{"image": "This field is required"})
		return
	}

	img, err := h.imageService.Replace(c.Request.Context(), productID, imageID, fileInput(fh))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Image updated successfully", img)
}

type reorderRequest struct {
	ImageOrder []int `json:"image_order" validate:"required,min=1,dive,gt=0"`
}

// Reorder handles PUT /admin/products/:id/images/reorder
func (h *ProductImageHandler) Reorder(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reorderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	images, err := h.imageService.Reorder(c.Request.Context(), productID, req.ImageOrder)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Images reordered successfully", images)
}

type altTextRequest struct {
	AltText string `json:"alt_text" validate:"max=255"`
}

// UpdateAltText handles PUT /admin/products/:id/images/:image/alt-text
func (h *ProductImageHandler) UpdateAltText(c *gin.Context) {
	productID, imageID, ok := imageParams(c)
	if !ok {
		return
	}
	var req altTextRequest
	if !bindAndValidate(c, &req) {
		return
	}

	img, err := h.imageService.UpdateAltText(c.Request.Context(), productID, imageID, req.AltText)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Alt text updated successfully", img)
}

func imageParams(c *gin.Context) (int, int, bool) {
	productID, ok := paramID(c, "id")
	if !ok {
		return 0, 0, false
	}
	imageID, ok := paramID(c, "image")
	if !ok {
		return 0, 0, false
	}
	return productID, imageID, true
}

func fileInput(fh *multipart.FileHeader) service.FileInput {
	return service.FileInput{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func fileInputs(headers []*multipart.FileHeader) []service.FileInput {
	files := make([]service.FileInput, 0, len(headers))
	for _, fh := range headers {
		files = append(files, fileInput(fh))
	}
	return files
}
