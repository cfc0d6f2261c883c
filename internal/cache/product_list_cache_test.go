package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/models"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func TestProductListCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewProductListCache(newMemStore(), time.Minute)
	require.NotNil(t, c)

	_, version, ok := c.Get(ctx, 1, 12)
	assert.False(t, ok)
	assert.Equal(t, "0", version)

	c.Set(ctx, version, 1, 12, &PublicPage{Products: []models.Product{{ID: 7, Name: "Kopi"}}, Total: 1})

	page, _, ok := c.Get(ctx, 1, 12)
	require.True(t, ok)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "Kopi", page.Products[0].Name)

	_, _, ok = c.Get(ctx, 2, 12)
	assert.False(t, ok)
}

func TestProductListCache_InvalidateHidesOldPages(t *testing.T) {
	ctx := context.Background()
	c := NewProductListCache(newMemStore(), time.Minute)

	_, version, _ := c.Get(ctx, 1, 12)
	c.Set(ctx, version, 1, 12, &PublicPage{Total: 3})
	c.Invalidate(ctx)

	_, _, ok := c.Get(ctx, 1, 12)
	assert.False(t, ok)
}

func TestProductListCache_PageReadBeforeMutationIsNotServed(t *testing.T) {
	ctx := context.Background()
	c := NewProductListCache(newMemStore(), time.Minute)

	// miss, then a mutation commits while the page is being read from the DB
	_, version, ok := c.Get(ctx, 1, 12)
	require.False(t, ok)
	c.Invalidate(ctx)
	c.Set(ctx, version, 1, 12, &PublicPage{Products: []models.Product{{ID: 1, Name: "old"}}, Total: 1})

	_, _, ok = c.Get(ctx, 1, 12)
	assert.False(t, ok)
}

func TestProductListCache_EmptyVersionIsNotStored(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	c := NewProductListCache(store, time.Minute)

	c.Set(ctx, "", 1, 12, &PublicPage{Total: 1})
	assert.Empty(t, store.data)
}

func TestProductListCache_NilIsNoop(t *testing.T) {
	ctx := context.Background()
	var c *ProductListCache = NewProductListCache(nil, time.Minute)
	assert.Nil(t, c)

	c.Set(ctx, "0", 1, 12, &PublicPage{})
	c.Invalidate(ctx)
	_, _, ok := c.Get(ctx, 1, 12)
	assert.False(t, ok)
}
