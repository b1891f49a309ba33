package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errCacheDown
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, ...string) error    { return errCacheDown }
func (brokenCache) DeletePrefix(context.Context, string) error { return errCacheDown }
func (brokenCache) Ping(context.Context) error                 { return errCacheDown }
func (brokenCache) Close() error                               { return nil }

func newCategoryRepo(t *testing.T, c EntityCache) (*CachedRepository[store.ProductCategory, *store.ProductCategory], *testutil.MockRepository[store.ProductCategory]) {
	t.Helper()
	inner := &testutil.MockRepository[store.ProductCategory]{}
	repo := NewCachedRepository[store.ProductCategory](inner, c, time.Minute, "store:", zap.NewNop(),
		store.IndexProduct, store.IndexOrderItem)
	return repo, inner
}

func TestCachedRepository_FindByIDReadThrough(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	category := &store.ProductCategory{Name: "Shirts"}
	category.ID = 7
	inner.On("FindByID", mock.Anything, int64(7)).Return(category, nil).Once()

	first, err := repo.FindByID(ctx, 7)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, "Shirts", first.Name)
	assert.Equal(t, int64(7), second.ID)
	assert.Equal(t, "Shirts", second.Name)
	inner.AssertNumberOfCalls(t, "FindByID", 1)

	_, ok, _ := c.Get(ctx, "store:productcategory:7")
	assert.True(t, ok)
}

func TestCachedRepository_NotFoundIsNotCached(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)

	inner.On("FindByID", mock.Anything, int64(3)).Return(nil, shared.ErrNotFound).Twice()

	_, err := repo.FindByID(context.Background(), 3)
	assert.True(t, shared.IsNotFound(err))
	_, err = repo.FindByID(context.Background(), 3)
	assert.True(t, shared.IsNotFound(err))

	assert.Equal(t, 0, c.Size())
	inner.AssertExpectations(t)
}

func TestCachedRepository_UpdateInvalidatesOwnAndDependentKeys(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "store:productcategory:7", []byte(`{"id":7,"name":"old"}`), time.Minute))
	require.NoError(t, c.Set(ctx, "store:productcategory:8", []byte(`{"id":8,"name":"other"}`), time.Minute))
	require.NoError(t, c.Set(ctx, "store:product:1", []byte(`{"id":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "store:orderitem:1", []byte(`{"id":1}`), time.Minute))
	require.NoError(t, c.Set(ctx, "store:invoice:1", []byte(`{"id":1}`), time.Minute))

	category := &store.ProductCategory{Name: "new"}
	category.ID = 7
	inner.On("Update", mock.Anything, category).Return(nil).Once()

	require.NoError(t, repo.Update(ctx, category))

	for key, want := range map[string]bool{
		"store:productcategory:7": false,
		"store:productcategory:8": true,
		"store:product:1":         false,
		"store:orderitem:1":       false,
		"store:invoice:1":         true,
	} {
		_, ok, _ := c.Get(ctx, key)
		assert.Equal(t, want, ok, key)
	}
}

func TestCachedRepository_DeleteInvalidates(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "store:productcategory:5", []byte(`{"id":5}`), time.Minute))
	inner.On("DeleteByID", mock.Anything, int64(5)).Return(nil).Once()

	require.NoError(t, repo.DeleteByID(ctx, 5))

	_, ok, _ := c.Get(ctx, "store:productcategory:5")
	assert.False(t, ok)
	inner.AssertExpectations(t)
}

func TestCachedRepository_CreateFailureSkipsInvalidation(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "store:product:1", []byte(`{"id":1}`), time.Minute))
	category := &store.ProductCategory{Name: "x"}
	inner.On("Create", mock.Anything, category).Return(errors.New("insert failed")).Once()

	assert.Error(t, repo.Create(ctx, category))

	_, ok, _ := c.Get(ctx, "store:product:1")
	assert.True(t, ok)
}

func TestCachedRepository_CorruptEntryFallsBackToRepository(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "store:productcategory:2", []byte(`not json`), time.Minute))
	category := &store.ProductCategory{Name: "Hats"}
	category.ID = 2
	inner.On("FindByID", mock.Anything, int64(2)).Return(category, nil).Once()

	got, err := repo.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Hats", got.Name)

	data, ok, _ := c.Get(ctx, "store:productcategory:2")
	require.True(t, ok)
	assert.Contains(t, string(data), "Hats")
}

func TestCachedRepository_CacheErrorsDoNotFailCalls(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	inner := &testutil.MockRepository[store.ProductCategory]{}
	repo := NewCachedRepository[store.ProductCategory](inner, brokenCache{}, time.Minute, "store:", zap.New(core),
		store.IndexProduct)
	ctx := context.Background()

	category := &store.ProductCategory{Name: "Shoes"}
	category.ID = 4
	inner.On("FindByID", mock.Anything, int64(4)).Return(category, nil)
	inner.On("Update", mock.Anything, category).Return(nil)

	got, err := repo.FindByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Shoes", got.Name)
	require.NoError(t, repo.Update(ctx, category))

	assert.GreaterOrEqual(t, logs.FilterMessage("cache read failed").Len(), 1)
	assert.GreaterOrEqual(t, logs.FilterMessage("cache write failed").Len(), 1)
	assert.GreaterOrEqual(t, logs.FilterMessage("cache invalidation failed").Len(), 2)
}

func TestCachedRepository_PassesThroughReads(t *testing.T) {
	c := NewInMemoryEntityCache()
	defer c.Close()
	repo, inner := newCategoryRepo(t, c)
	ctx := context.Background()

	page := shared.PageRequest{Page: 0, Size: 10}
	inner.On("FindAll", mock.Anything, page).
		Return(shared.NewPage([]store.ProductCategory{{Name: "a"}}, 1, page), nil)
	inner.On("ExistsByID", mock.Anything, int64(1)).Return(true, nil)

	got, err := repo.FindAll(ctx, page)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	exists, err := repo.ExistsByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}
