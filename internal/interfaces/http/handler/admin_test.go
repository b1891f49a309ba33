package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/infrastructure/persistence"
	"github.com/store/backend/internal/infrastructure/searchsync"
	"github.com/store/backend/internal/interfaces/http/dto"
	"github.com/store/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adminFixture struct {
	*storeFixture
	repo *persistence.GormSearchSyncRepository
}

func newAdminFixture(t *testing.T, withQueue bool) *adminFixture {
	t.Helper()
	f := newStoreFixture(t)
	repo := persistence.NewGormSearchSyncRepository(f.db)

	var queue SyncQueue
	if withQueue {
		queue = searchsync.NewQueue(repo, 3)
	}
	NewAdminHandler(f.services, queue, zap.NewNop()).RegisterRoutes(f.api.Group("/admin"))
	return &adminFixture{storeFixture: f, repo: repo}
}

func (f *adminFixture) deadTask(t *testing.T, id int64) {
	t.Helper()
	task := shared.NewSearchSyncTask(store.IndexProduct, id, shared.SyncOpIndex, errors.New("es down"))
	task.Status = shared.SyncStatusDead
	task.RetryCount = 3
	require.NoError(t, f.repo.Save(context.Background(), task))
}

func TestAdminHandler_Reindex(t *testing.T) {
	f := newAdminFixture(t, true)
	f.category(t, "Shirts")
	f.category(t, "Hats")

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{
			Name:           "one entity by path name",
			Method:         http.MethodPost,
			Path:           "/api/admin/reindex?entity=product-categories",
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := testutil.DecodeJSON[dto.ReindexResponse](t, w)
				assert.Equal(t, dto.ReindexResponse{Entity: store.IndexProductCategory, Indexed: 2}, resp)
			},
		},
		{
			Name:           "one entity by index name",
			Method:         http.MethodPost,
			Path:           "/api/admin/reindex?entity=shipment",
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "every entity",
			Method:         http.MethodPost,
			Path:           "/api/admin/reindex",
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := testutil.DecodeJSON[[]dto.ReindexResponse](t, w)
				require.Len(t, resp, 6)
				assert.Equal(t, store.IndexProductCategory, resp[0].Entity)
				assert.Equal(t, int64(2), resp[0].Indexed)
			},
		},
		{
			Name:           "unknown entity",
			Method:         http.MethodPost,
			Path:           "/api/admin/reindex?entity=customers",
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeBadRequest,
		},
	})

	page, err := f.services.Categories.Search(context.Background(), "*", shared.DefaultPageRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestAdminHandler_SearchSync(t *testing.T) {
	f := newAdminFixture(t, true)
	f.deadTask(t, 1)
	f.deadTask(t, 2)

	w := testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/admin/search-sync",
		ExpectedStatus: http.StatusOK,
	})
	assert.Equal(t, dto.SyncStatsResponse{Dead: 2}, testutil.DecodeJSON[dto.SyncStatsResponse](t, w))

	w = testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/admin/search-sync/dead",
		ExpectedStatus: http.StatusOK,
	})
	dead := testutil.DecodeJSON[[]SyncTaskResponse](t, w)
	require.Len(t, dead, 2)
	assert.Equal(t, "es down", dead[0].LastError)
	assert.Equal(t, "2", w.Header().Get(TotalCountHeader))

	w = testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Method:         http.MethodPost,
		Path:           "/api/admin/search-sync/retry-dead",
		ExpectedStatus: http.StatusOK,
	})
	assert.Equal(t, int64(2), testutil.DecodeJSON[dto.RetryDeadResponse](t, w).Requeued)

	w = testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/admin/search-sync",
		ExpectedStatus: http.StatusOK,
	})
	assert.Equal(t, dto.SyncStatsResponse{Pending: 2}, testutil.DecodeJSON[dto.SyncStatsResponse](t, w))
}

func TestAdminHandler_SearchSyncDisabled(t *testing.T) {
	f := newAdminFixture(t, false)

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{Name: "stats", Path: "/api/admin/search-sync", ExpectedStatus: http.StatusServiceUnavailable, ExpectedCode: dto.ErrCodeUnavailable},
		{Name: "retry", Method: http.MethodPost, Path: "/api/admin/search-sync/retry-dead", ExpectedStatus: http.StatusServiceUnavailable},
	})
}
