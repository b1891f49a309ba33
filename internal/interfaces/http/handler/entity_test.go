package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/store/backend/internal/interfaces/http/dto"
	"github.com/store/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *storeFixture) category(t *testing.T, name string) *store.ProductCategory {
	t.Helper()
	c, err := f.services.Categories.Create(context.Background(), &store.ProductCategory{Name: name})
	require.NoError(t, err)
	return c
}

func TestEntityHandler_Create(t *testing.T) {
	f := newStoreFixture(t)

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{
			Name:           "persists and points at the new record",
			Method:         http.MethodPost,
			Path:           "/api/product-categories",
			Body:           map[string]any{"name": "Shirts", "description": "Cotton"},
			ExpectedStatus: http.StatusCreated,
			Validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				got := testutil.DecodeJSON[store.ProductCategory](t, w)
				require.NotZero(t, got.ID)
				assert.Equal(t, "Shirts", got.Name)
				assert.Equal(t, "/api/product-categories/"+itoa(got.ID), w.Header().Get("Location"))
			},
		},
		{
			Name:           "rejects a body with an id",
			Method:         http.MethodPost,
			Path:           "/api/product-categories",
			Body:           map[string]any{"id": 42, "name": "Shirts"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeIDExists,
		},
		{
			Name:           "reports invalid fields",
			Method:         http.MethodPost,
			Path:           "/api/products",
			Body:           map[string]any{"name": " ", "price": -1, "size": "XS"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeValidation,
			Validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				resp := testutil.DecodeJSON[dto.ErrorResponse](t, w)
				fields := make([]string, 0, len(resp.Details))
				for _, d := range resp.Details {
					fields = append(fields, d.Field)
				}
				assert.ElementsMatch(t, []string{"name", "price", "size"}, fields)
			},
		},
		{
			Name:           "rejects an unknown enum value",
			Method:         http.MethodPost,
			Path:           "/api/product-orders",
			Body:           map[string]any{"placedDate": "2024-01-02T10:00:00Z", "status": "LOST", "code": "A1"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeValidation,
		},
		{
			Name:           "rejects a wrongly typed field",
			Method:         http.MethodPost,
			Path:           "/api/order-items",
			Body:           map[string]any{"quantity": "many", "status": "AVAILABLE"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   dto.ErrCodeBadRequest,
		},
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/product-categories", strings.NewReader(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		testutil.AssertErrorCode(t, w, dto.ErrCodeBadRequest)
	})
}

func TestEntityHandler_CreateWithReference(t *testing.T) {
	f := newStoreFixture(t)
	shirts := f.category(t, "Shirts")

	w := testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Method: http.MethodPost,
		Path:   "/api/products",
		Body: map[string]any{
			"name":            "Oxford",
			"price":           "29.50",
			"size":            "L",
			"productCategory": map[string]any{"id": shirts.ID},
		},
		ExpectedStatus: http.StatusCreated,
	})

	got := testutil.DecodeJSON[store.Product](t, w)
	require.NotNil(t, got.ProductCategory)
	assert.Equal(t, "Shirts", got.ProductCategory.Name, "the response carries the loaded reference")
	assert.True(t, decimal.RequireFromString("29.50").Equal(*got.Price))

	testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Method: http.MethodPost,
		Path:   "/api/order-items",
		Body: map[string]any{
			"quantity": 1,
			"status":   "AVAILABLE",
			"product":  map[string]any{"id": 777},
		},
		ExpectedStatus: http.StatusBadRequest,
		ExpectedCode:   shared.CodeInvalidInput,
	})
}

func TestEntityHandler_Update(t *testing.T) {
	f := newStoreFixture(t)
	shirts := f.category(t, "Shirts")

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{
			Name:           "replaces the record",
			Method:         http.MethodPut,
			Path:           "/api/product-categories",
			Body:           map[string]any{"id": shirts.ID, "name": "T-Shirts"},
			ExpectedStatus: http.StatusOK,
			Validate: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, "T-Shirts", testutil.DecodeJSON[store.ProductCategory](t, w).Name)
			},
		},
		{
			Name:           "accepts a matching path id",
			Method:         http.MethodPut,
			Path:           "/api/product-categories/" + itoa(shirts.ID),
			Body:           map[string]any{"id": shirts.ID, "name": "Polos"},
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "rejects a path id that differs from the body",
			Method:         http.MethodPut,
			Path:           "/api/product-categories/999",
			Body:           map[string]any{"id": shirts.ID, "name": "Polos"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeInvalidInput,
		},
		{
			Name:           "requires an id",
			Method:         http.MethodPut,
			Path:           "/api/product-categories",
			Body:           map[string]any{"name": "Polos"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeIDNull,
		},
		{
			Name:           "an unknown id is a bad request",
			Method:         http.MethodPut,
			Path:           "/api/product-categories",
			Body:           map[string]any{"id": 999, "name": "Polos"},
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeNotFound,
		},
	})
}

func TestEntityHandler_GetAndDelete(t *testing.T) {
	f := newStoreFixture(t)
	shirts := f.category(t, "Shirts")
	path := "/api/product-categories/" + itoa(shirts.ID)

	testutil.RunHTTPTestCases(t, f.router, []testutil.HTTPTestCase{
		{Name: "found", Path: path, ExpectedStatus: http.StatusOK},
		{Name: "missing", Path: "/api/product-categories/999", ExpectedStatus: http.StatusNotFound, ExpectedCode: shared.CodeNotFound},
		{Name: "non-numeric id", Path: "/api/product-categories/abc", ExpectedStatus: http.StatusBadRequest, ExpectedCode: dto.ErrCodeBadRequest},
		{Name: "delete", Method: http.MethodDelete, Path: path, ExpectedStatus: http.StatusNoContent},
		{Name: "gone", Path: path, ExpectedStatus: http.StatusNotFound},
		{Name: "delete again", Method: http.MethodDelete, Path: path, ExpectedStatus: http.StatusNoContent},
	})
}

func TestEntityHandler_List(t *testing.T) {
	f := newStoreFixture(t)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		f.category(t, name)
	}

	w := testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/product-categories?page=1&size=1&sort=name,desc",
		ExpectedStatus: http.StatusOK,
	})

	items := testutil.DecodeJSON[[]store.ProductCategory](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "Bravo", items[0].Name)
	assert.Equal(t, "3", w.Header().Get(TotalCountHeader))

	link := w.Header().Get(LinkHeader)
	assert.Contains(t, link, `page=2&size=1&sort=name%2Cdesc>; rel="next"`)
	assert.Contains(t, link, `page=0&size=1&sort=name%2Cdesc>; rel="prev"`)
	assert.Contains(t, link, `page=2&size=1&sort=name%2Cdesc>; rel="last"`)
	assert.Contains(t, link, `page=0&size=1&sort=name%2Cdesc>; rel="first"`)

	t.Run("empty table is an empty array", func(t *testing.T) {
		w := testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
			Path:           "/api/shipments",
			ExpectedStatus: http.StatusOK,
		})
		assert.JSONEq(t, `[]`, w.Body.String())
		assert.Equal(t, "0", w.Header().Get(TotalCountHeader))
	})

	t.Run("negative page is rejected", func(t *testing.T) {
		testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
			Path:           "/api/product-categories?page=-1",
			ExpectedStatus: http.StatusBadRequest,
			ExpectedCode:   shared.CodeValidation,
		})
	})
}

func TestEntityHandler_Search(t *testing.T) {
	f := newStoreFixture(t)
	f.category(t, "Shirts")
	f.category(t, "Shoes")
	f.category(t, "Hats")

	w := testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/_search/product-categories?query=sh*",
		ExpectedStatus: http.StatusOK,
	})
	items := testutil.DecodeJSON[[]store.ProductCategory](t, w)
	assert.Len(t, items, 2)
	assert.Equal(t, "2", w.Header().Get(TotalCountHeader))

	w = testutil.RunHTTPTestCase(t, f.router, testutil.HTTPTestCase{
		Path:           "/api/_search/product-categories",
		ExpectedStatus: http.StatusBadRequest,
		ExpectedCode:   shared.CodeValidation,
	})
	resp := testutil.DecodeJSON[dto.ErrorResponse](t, w)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "query", resp.Details[0].Field)
}
