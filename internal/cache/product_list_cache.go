package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

const publicVersionKey = "products:public:version"

// Store is the subset of the Redis client the listing cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// PublicPage is one cached page of the public product listing.
type PublicPage struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
	CachedAt time.Time        `json:"cachedAt"`
}

// ProductListCache caches public listing pages. Pages are keyed by a version
// number that Invalidate bumps, so a mutation makes every older page
// unreachable at once. A nil *ProductListCache is valid and caches nothing.
type ProductListCache struct {
	store Store
	ttl   time.Duration
}

// NewProductListCache creates a listing cache. store may be nil when Redis is
// not configured, in which case nil is returned.
func NewProductListCache(store Store, ttl time.Duration) *ProductListCache {
	if store == nil || ttl <= 0 {
		return nil
	}
	return &ProductListCache{store: store, ttl: ttl}
}

func (c *ProductListCache) version(ctx context.Context) (string, error) {
	v, err := c.store.Get(ctx, publicVersionKey)
	if errors.Is(err, ErrMiss) {
		return "0", nil
	}
	return v, err
}

func (c *ProductListCache) pageKey(version string, page, limit int) string {
	return fmt.Sprintf("products:public:v%s:%d:%d", version, page, limit)
}

// Get returns the cached page, or ok=false on a miss or any cache error,
// along with the version it read. A page built after a miss goes to Set with
// that version. The version is empty when it could not be read.
func (c *ProductListCache) Get(ctx context.Context, page, limit int) (*PublicPage, string, bool) {
	if c == nil {
		return nil, "", false
	}
	version, err := c.version(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("public listing cache: version lookup failed")
		return nil, "", false
	}
	raw, err := c.store.Get(ctx, c.pageKey(version, page, limit))
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			log.Warn().Err(err).Msg("public listing cache: get failed")
		}
		return nil, version, false
	}
	var p PublicPage
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		log.Warn().Err(err).Msg("public listing cache: corrupt entry")
		return nil, version, false
	}
	return &p, version, true
}

// Set stores a page under version, the value Get returned before the page
// was read from the database. Errors are logged only.
func (c *ProductListCache) Set(ctx context.Context, version string, page, limit int, p *PublicPage) {
	if c == nil || version == "" {
		return
	}
	p.CachedAt = time.Now()
	data, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("public listing cache: marshal failed")
		return
	}
	if err := c.store.Set(ctx, c.pageKey(version, page, limit), string(data), c.ttl); err != nil {
		log.Warn().Err(err).Msg("public listing cache: set failed")
	}
}

// Invalidate bumps the version so every cached page is skipped.
func (c *ProductListCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if _, err := c.store.Incr(ctx, publicVersionKey); err != nil {
		log.Warn().Err(err).Msg("public listing cache: invalidate failed")
	}
}
