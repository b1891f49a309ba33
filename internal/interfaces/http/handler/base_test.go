package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/interfaces/http/dto"
	"github.com/store/backend/internal/interfaces/http/middleware"
	"github.com/store/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name:       "from context",
			setup:      func(c *gin.Context) { c.Set(middleware.RequestIDKey, "ctx-request-id") },
			expectedID: "ctx-request-id",
		},
		{
			name:       "from header when context empty",
			setup:      func(c *gin.Context) { c.Request.Header.Set(middleware.RequestIDHeader, "header-request-id") },
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			tt.setup(tc.Context)
			assert.Equal(t, tt.expectedID, getRequestID(tc.Context))
		})
	}
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, shared.CodeNotFound},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.ErrIdentityMissing), http.StatusBadRequest, shared.CodeIDNull},
		{"invalid password", shared.ErrInvalidPassword, http.StatusBadRequest, shared.CodeInvalidPassword},
		{"conflict", shared.ErrAlreadyExists, http.StatusConflict, shared.CodeAlreadyExists},
		{"state", shared.ErrInvalidState, http.StatusUnprocessableEntity, shared.CodeInvalidOperation},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, shared.CodeForbidden},
		{"unknown domain code", shared.NewDomainError("SOMETHING_ELSE", "odd"), http.StatusInternalServerError, "SOMETHING_ELSE"},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			tc.Context.Set(middleware.RequestIDKey, "req-1")

			(&BaseHandler{}).HandleError(tc.Context, tt.err)

			assert.Equal(t, tt.wantStatus, tc.ResponseCode())
			resp := testutil.DecodeJSON[dto.ErrorResponse](t, tc.Recorder)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, "req-1", resp.RequestID)
			assert.NotEmpty(t, resp.Message)
		})
	}

	t.Run("internal errors hide the cause", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		(&BaseHandler{}).HandleError(tc.Context, errors.New("pq: password authentication failed"))

		assert.NotContains(t, tc.Recorder.Body.String(), "password authentication")
		require.Len(t, tc.Context.Errors, 1)
	})

	t.Run("field errors become details", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		err := shared.NewValidation("Invoice").Require(false, "code", "must not be blank").Err()

		(&BaseHandler{}).HandleError(tc.Context, err)

		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		resp := testutil.DecodeJSON[dto.ErrorResponse](t, tc.Recorder)
		assert.Equal(t, shared.CodeValidation, resp.Code)
		assert.Equal(t, []shared.FieldError{{Field: "code", Message: "must not be blank"}}, resp.Details)
	})

	t.Run("nil writes nothing", func(t *testing.T) {
		tc := testutil.NewTestContext(t)
		(&BaseHandler{}).HandleError(tc.Context, nil)
		assert.Empty(t, tc.ResponseBody())
	})
}

func TestPageLinks(t *testing.T) {
	u, err := url.Parse("/api/products?query=x&page=4&size=10")
	require.NoError(t, err)

	tests := []struct {
		name       string
		page       int
		totalPages int
		want       string
	}{
		{
			name:       "first of three",
			page:       0,
			totalPages: 3,
			want: `</api/products?page=1&query=x&size=10>; rel="next",` +
				`</api/products?page=2&query=x&size=10>; rel="last",` +
				`</api/products?page=0&query=x&size=10>; rel="first"`,
		},
		{
			name:       "middle",
			page:       1,
			totalPages: 3,
			want: `</api/products?page=2&query=x&size=10>; rel="next",` +
				`</api/products?page=0&query=x&size=10>; rel="prev",` +
				`</api/products?page=2&query=x&size=10>; rel="last",` +
				`</api/products?page=0&query=x&size=10>; rel="first"`,
		},
		{
			name:       "empty result",
			page:       0,
			totalPages: 0,
			want: `</api/products?page=0&query=x&size=10>; rel="last",` +
				`</api/products?page=0&query=x&size=10>; rel="first"`,
		},
		{
			name:       "past the end points back at the last page",
			page:       7,
			totalPages: 3,
			want: `</api/products?page=2&query=x&size=10>; rel="prev",` +
				`</api/products?page=2&query=x&size=10>; rel="last",` +
				`</api/products?page=0&query=x&size=10>; rel="first"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageLinks(u, tt.page, 10, tt.totalPages))
		})
	}
}

func TestParseID(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-3", "99999999999999999999"} {
		t.Run(raw, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Params = gin.Params{{Key: "id", Value: raw}}

			_, ok := (&BaseHandler{}).parseID(c)

			assert.False(t, ok)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
