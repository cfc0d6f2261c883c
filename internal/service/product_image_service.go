package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/cache"
	"github.com/GTDGit/gtd_backoffice/internal/config"
	"github.com/GTDGit/gtd_backoffice/internal/metrics"
	"github.com/GTDGit/gtd_backoffice/internal/models"
	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/storage"
	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// sniffLen is how many leading bytes are inspected to detect the MIME type.
const sniffLen = 3072

// maxAltTextLength matches product_images.alt_text.
const maxAltTextLength = 255

// FileInput is one uploaded file. Open may be called more than once.
type FileInput struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// ProductImageService keeps product image rows and stored files in sync.
// Every mutation locks the product row first, so image operations on the same
// product are serialised.
type ProductImageService struct {
	repos  repository.Repos
	tx     repository.TxRunner
	disk   storage.Disk
	cache  *cache.ProductListCache
	limits config.UploadConfig
}

// NewProductImageService constructs a ProductImageService.
func NewProductImageService(repos repository.Repos, tx repository.TxRunner, disk storage.Disk, listCache *cache.ProductListCache, limits config.UploadConfig) *ProductImageService {
	return &ProductImageService{
		repos:  repos,
		tx:     tx,
		disk:   disk,
		cache:  listCache,
		limits: limits,
	}
}

// checkedFile is a validated upload.
type checkedFile struct {
	input FileInput
	mime  string
	ext   string
}

// List returns a product's images in display order.
func (s *ProductImageService) List(ctx context.Context, productID int) ([]models.ProductImage, error) {
	if _, err := s.repos.Products.GetByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "get product")
	}
	images, err := s.repos.Images.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	s.resolveURLs(images)
	return images, nil
}

// Store validates and stores files, then records them after the product's
// existing images. The first image of a product without images becomes
// primary. If any file or row fails, every file written by this call is
// removed again.
func (s *ProductImageService) Store(ctx context.Context, productID int, files []FileInput) (images []models.ProductImage, err error) {
	defer func() { metrics.RecordImageOp("upload", err) }()

	checked, err := s.checkFiles("images", files)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Products.GetByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "get product")
	}

	var stored []string
	images = make([]models.ProductImage, 0, len(checked))
	for _, f := range checked {
		img, err := s.put(ctx, productID, f)
		if err != nil {
			s.removeFiles(ctx, stored)
			return nil, err
		}
		stored = append(stored, img.ImagePath)
		images = append(images, *img)
	}

	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := r.Products.LockByID(ctx, productID); err != nil {
			return notFoundOr(err, "lock product")
		}
		existing, err := r.Images.CountByProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("count images: %w", err)
		}
		for i := range images {
			images[i].SortOrder = existing + i
			images[i].IsPrimary = existing == 0 && i == 0
			if err := r.Images.Create(ctx, &images[i]); err != nil {
				return fmt.Errorf("create image record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, stored)
		return nil, err
	}

	log.Info().Int("product_id", productID).Int("count", len(images)).Msg("Product images uploaded")
	s.resolveURLs(images)
	s.cache.Invalidate(ctx)
	return images, nil
}

// SetPrimary makes imageID the product's only primary image.
func (s *ProductImageService) SetPrimary(ctx context.Context, productID, imageID int) (err error) {
	defer func() { metrics.RecordImageOp("set_primary", err) }()

	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := s.lockOwned(ctx, r, productID, imageID); err != nil {
			return err
		}
		if err := r.Images.SetPrimary(ctx, productID, imageID); err != nil {
			return fmt.Errorf("set primary image: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Destroy deletes one image. If it was primary and others remain, the first
// remaining image by sort order becomes primary. The file is removed after
// the rows are committed.
func (s *ProductImageService) Destroy(ctx context.Context, productID, imageID int) (err error) {
	defer func() { metrics.RecordImageOp("delete", err) }()

	var deleted []models.ProductImage
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := s.lockOwned(ctx, r, productID, imageID); err != nil {
			return err
		}
		var err error
		if deleted, err = r.Images.DeleteByIDs(ctx, productID, []int{imageID}); err != nil {
			return fmt.Errorf("delete image: %w", err)
		}
		return r.Images.PromoteFirstIfNoPrimary(ctx, productID)
	})
	if err != nil {
		return err
	}

	s.removeFiles(ctx, imagePaths(deleted))
	s.cache.Invalidate(ctx)
	return nil
}

// DestroyMultiple deletes the product's images among imageIDs; ids of other
// products are ignored. It returns how many images were deleted.
func (s *ProductImageService) DestroyMultiple(ctx context.Context, productID int, imageIDs []int) (n int, err error) {
	defer func() { metrics.RecordImageOp("delete", err) }()

	if len(imageIDs) == 0 {
		return 0, utils.NewValidationError("image_ids", "at least one image id is required")
	}

	var deleted []models.ProductImage
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := r.Products.LockByID(ctx, productID); err != nil {
			return notFoundOr(err, "lock product")
		}
		var err error
		if deleted, err = r.Images.DeleteByIDs(ctx, productID, imageIDs); err != nil {
			return fmt.Errorf("delete images: %w", err)
		}
		return r.Images.PromoteFirstIfNoPrimary(ctx, productID)
	})
	if err != nil {
		return 0, err
	}

	s.removeFiles(ctx, imagePaths(deleted))
	if len(deleted) > 0 {
		s.cache.Invalidate(ctx)
	}
	return len(deleted), nil
}

// Replace swaps the stored file of an image, keeping its primary flag, sort
// order and alt text. The old file is removed after commit; the new one is
// removed if the row update fails.
func (s *ProductImageService) Replace(ctx context.Context, productID, imageID int, file FileInput) (img *models.ProductImage, err error) {
	defer func() { metrics.RecordImageOp("replace", err) }()

	checked, err := s.checkFiles("image", []FileInput{file})
	if err != nil {
		return nil, err
	}
	current, err := s.repos.Images.GetByID(ctx, imageID)
	if err != nil {
		return nil, notFoundOr(err, "get image")
	}
	if current.ProductID != productID {
		return nil, utils.ErrImageNotOwned
	}

	fresh, err := s.put(ctx, productID, checked[0])
	if err != nil {
		return nil, err
	}

	var oldPath string
	err = s.tx.Run(ctx, func(r repository.Repos) error {
		locked, err := s.lockOwned(ctx, r, productID, imageID)
		if err != nil {
			return err
		}
		oldPath = locked.ImagePath
		locked.ImagePath = fresh.ImagePath
		locked.ImageName = fresh.ImageName
		locked.FileSize = fresh.FileSize
		locked.MimeType = fresh.MimeType
		if err := r.Images.UpdateFile(ctx, locked); err != nil {
			return fmt.Errorf("update image record: %w", err)
		}
		img = locked
		return nil
	})
	if err != nil {
		s.removeFiles(ctx, []string{fresh.ImagePath})
		return nil, err
	}

	s.removeFiles(ctx, []string{oldPath})
	s.resolveURL(img)
	s.cache.Invalidate(ctx)
	return img, nil
}

// Reorder sets sort_order to each id's position in orderedIDs. Ids that do not
// belong to the product are ignored.
func (s *ProductImageService) Reorder(ctx context.Context, productID int, orderedIDs []int) (images []models.ProductImage, err error) {
	defer func() { metrics.RecordImageOp("reorder", err) }()

	if len(orderedIDs) == 0 {
		return nil, utils.NewValidationError("image_order", "at least one image id is required")
	}

	err = s.tx.Run(ctx, func(r repository.Repos) error {
		if _, err := r.Products.LockByID(ctx, productID); err != nil {
			return notFoundOr(err, "lock product")
		}
		for i, id := range orderedIDs {
			if _, err := r.Images.UpdateSortOrder(ctx, productID, id, i); err != nil {
				return fmt.Errorf("update sort order: %w", err)
			}
		}
		var err error
		images, err = r.Images.ListByProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.resolveURLs(images)
	s.cache.Invalidate(ctx)
	return images, nil
}

// UpdateAltText sets the alt text of one image.
func (s *ProductImageService) UpdateAltText(ctx context.Context, productID, imageID int, altText string) (*models.ProductImage, error) {
	altText = strings.TrimSpace(altText)
	if len(altText) > maxAltTextLength {
		return nil, utils.NewValidationError("alt_text", fmt.Sprintf("may not be greater than %d characters", maxAltTextLength))
	}

	var img *models.ProductImage
	err := s.tx.Run(ctx, func(r repository.Repos) error {
		locked, err := s.lockOwned(ctx, r, productID, imageID)
		if err != nil {
			return err
		}
		if err := r.Images.UpdateAltText(ctx, productID, imageID, altText); err != nil {
			return fmt.Errorf("update alt text: %w", err)
		}
		locked.AltText = altText
		img = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.resolveURL(img)
	s.cache.Invalidate(ctx)
	return img, nil
}

// lockOwned locks the product and returns imageID, failing with ErrNotFound
// or ErrImageNotOwned.
func (s *ProductImageService) lockOwned(ctx context.Context, r repository.Repos, productID, imageID int) (*models.ProductImage, error) {
	if _, err := r.Products.LockByID(ctx, productID); err != nil {
		return nil, notFoundOr(err, "lock product")
	}
	img, err := r.Images.GetByID(ctx, imageID)
	if err != nil {
		return nil, notFoundOr(err, "get image")
	}
	if img.ProductID != productID {
		return nil, utils.ErrImageNotOwned
	}
	return img, nil
}

// checkFiles enforces count, size and MIME limits. field names the form
// field, reported as field or field.N.
func (s *ProductImageService) checkFiles(field string, files []FileInput) ([]checkedFile, error) {
	if len(files) == 0 {
		return nil, utils.NewValidationError(field, "at least one image is required")
	}
	if len(files) > s.limits.MaxFiles {
		return nil, utils.NewValidationError(field, fmt.Sprintf("may not have more than %d items", s.limits.MaxFiles))
	}

	verr := &utils.ValidationError{}
	out := make([]checkedFile, 0, len(files))
	for i, f := range files {
		key := field
		if field == "images" {
			key = fmt.Sprintf("%s.%d", field, i)
		}
		if f.Size > s.limits.MaxFileSize {
			verr.Add(key, fmt.Sprintf("may not be greater than %d kilobytes", s.limits.MaxFileSize/1024))
			continue
		}
		mt, err := sniff(f)
		if err != nil {
			verr.Add(key, "could not be read")
			continue
		}
		if !s.allowed(mt.String()) {
			verr.Add(key, "must be a file of type: "+s.allowedList())
			continue
		}
		out = append(out, checkedFile{input: f, mime: mt.String(), ext: mt.Extension()})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return out, nil
}

func sniff(f FileInput) (*mimetype.MIME, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return mimetype.Detect(head[:n]), nil
}

func (s *ProductImageService) allowed(mime string) bool {
	for _, m := range s.limits.AllowedMIMEs {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

func (s *ProductImageService) allowedList() string {
	exts := make([]string, 0, len(s.limits.AllowedMIMEs))
	for _, m := range s.limits.AllowedMIMEs {
		exts = append(exts, strings.TrimPrefix(m, "image/"))
	}
	return strings.Join(exts, ", ")
}

// put writes one validated file to products/<id>/<uuid><ext>. The returned
// image is not persisted yet.
func (s *ProductImageService) put(ctx context.Context, productID int, f checkedFile) (*models.ProductImage, error) {
	key := path.Join("products", fmt.Sprint(productID), uuid.NewString()+f.ext)

	rc, err := f.input.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open upload: %v", utils.ErrStorageFailure, err)
	}
	defer rc.Close()

	counter := &countingReader{r: io.LimitReader(rc, s.limits.MaxFileSize+1)}
	if err := s.disk.Put(ctx, key, counter, f.input.Size, f.mime); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrStorageFailure, err)
	}
	if counter.n > s.limits.MaxFileSize {
		s.removeFiles(ctx, []string{key})
		return nil, utils.NewValidationError("images", fmt.Sprintf("may not be greater than %d kilobytes", s.limits.MaxFileSize/1024))
	}
	metrics.ImageBytesStored.Add(float64(counter.n))

	name := path.Base(strings.ReplaceAll(f.input.Name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = path.Base(key)
	}
	return &models.ProductImage{
		ProductID: productID,
		ImagePath: key,
		ImageName: name,
		FileSize:  counter.n,
		MimeType:  f.mime,
	}, nil
}

// removeFiles deletes stored files best-effort. Failures are logged and
// counted, never returned; the orphan sweeper reclaims anything left behind.
func (s *ProductImageService) removeFiles(ctx context.Context, paths []string) {
	removeFiles(ctx, s.disk, paths)
}

func (s *ProductImageService) resolveURLs(images []models.ProductImage) {
	for i := range images {
		s.resolveURL(&images[i])
	}
}

func (s *ProductImageService) resolveURL(img *models.ProductImage) {
	if img != nil {
		img.ImageURL = s.disk.URL(img.ImagePath)
	}
}

func removeFiles(ctx context.Context, disk storage.Disk, paths []string) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := disk.Delete(ctx, p); err != nil {
			metrics.FileCleanupFailures.Inc()
			log.Error().Err(err).Str("path", p).Msg("Failed to delete stored image file")
		}
	}
}

func imagePaths(images []models.ProductImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.ImagePath)
	}
	return out
}

// notFoundOr maps sql.ErrNoRows to utils.ErrNotFound and wraps anything else.
func notFoundOr(err error, op string) error {
	if isNotFound(err) {
		return utils.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, utils.ErrNotFound)
}

// sweepBatch bounds how many paths are checked against the database at once.
const sweepBatch = 500

// SweepOrphans deletes files under products/ that are older than minAge and
// not referenced by any image row. minAge protects uploads whose rows are not
// committed yet. It returns the number of files removed.
func (s *ProductImageService) SweepOrphans(ctx context.Context, minAge time.Duration) (int, error) {
	files, err := s.disk.List(ctx, "products")
	if err != nil {
		return 0, fmt.Errorf("list stored files: %w", err)
	}

	cutoff := time.Now().Add(-minAge)
	var candidates []string
	for _, f := range files {
		if f.ModTime.Before(cutoff) {
			candidates = append(candidates, f.Path)
		}
	}

	removed := 0
	for start := 0; start < len(candidates); start += sweepBatch {
		end := min(start+sweepBatch, len(candidates))
		batch := candidates[start:end]

		referenced, err := s.repos.Images.ReferencedPaths(ctx, batch)
		if err != nil {
			return removed, fmt.Errorf("check referenced paths: %w", err)
		}
		for _, p := range batch {
			if referenced[p] {
				continue
			}
			if err := s.disk.Delete(ctx, p); err != nil {
				log.Error().Err(err).Str("path", p).Msg("Failed to delete orphaned file")
				continue
			}
			removed++
			metrics.OrphansSwept.Inc()
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Orphaned image files swept")
	}
	return removed, nil
}
