// Package storage writes uploaded files to the configured disk: the local
// filesystem (served by the HTTP server) or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/GTDGit/gtd_backoffice/internal/config"
)

// ErrNotExist is returned by Size/Open style lookups for missing files.
var ErrNotExist = errors.New("storage: file does not exist")

// FileInfo describes a stored file.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Disk is the file store used for product images. Paths are slash separated
// and relative to the disk root.
type Disk interface {
	// Put writes r to path, creating parent directories as needed.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	// Delete removes path. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error
	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)
	// List returns every file below prefix, recursively.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
	// URL returns the public URL clients use to fetch path.
	URL(path string) string
}

// New builds the disk selected by cfg.Disk.
func New(ctx context.Context, cfg *config.StorageConfig) (Disk, error) {
	switch cfg.Disk {
	case "", "local":
		base := cfg.PublicURL
		if base == "" {
			base = cfg.PublicPath
		}
		return NewLocalDisk(cfg.LocalRoot, base)
	case "s3":
		return NewS3Disk(ctx, &cfg.S3)
	default:
		return nil, fmt.Errorf("storage: unsupported disk %q", cfg.Disk)
	}
}
