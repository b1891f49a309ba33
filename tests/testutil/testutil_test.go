package testutil

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTestDB_MigratesStoreTables(t *testing.T) {
	db := NewTestDB(t)
	for _, table := range []string{"product_category", "product", "product_order", "order_item", "invoice", "shipment", "search_sync_task"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewMockDB_Ping(t *testing.T) {
	m := NewMockDB(t)
	m.Mock.ExpectPing()

	require.NoError(t, m.SqlDB.Ping())
	m.ExpectationsWereMet(t)
}

func TestStubMirror(t *testing.T) {
	ctx := context.Background()
	m := NewStubMirror[store.ProductCategory]()

	require.NoError(t, m.Index(ctx, &store.ProductCategory{BaseEntity: shared.BaseEntity{ID: 3}, Name: "Shirts"}))
	assert.True(t, m.Has(3))

	m.FailWrites(errors.New("down"))
	assert.Error(t, m.DeleteByID(ctx, 3))
	m.FailWrites(nil)
	require.NoError(t, m.DeleteByID(ctx, 3))

	assert.Equal(t, []int64{3}, m.Indexed())
	assert.Equal(t, []int64{3}, m.Deleted())
	assert.False(t, m.Has(3))
}

func TestRunHTTPTestCase(t *testing.T) {
	r := gin.New()
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "Resource not found"})
	})

	RunHTTPTestCase(t, r, HTTPTestCase{
		Path:           "/missing",
		ExpectedStatus: http.StatusNotFound,
		ExpectedCode:   "NOT_FOUND",
	})
}

func TestWaitForCondition(t *testing.T) {
	var n atomic.Int32
	ok := WaitForCondition(t, func() bool { return n.Add(1) >= 3 }, time.Second, time.Millisecond)
	assert.True(t, ok)

	assert.False(t, WaitForCondition(t, func() bool { return false }, 5*time.Millisecond, time.Millisecond))
}

func TestTestContext(t *testing.T) {
	tc := NewTestContext(t)
	tc.SetHeader("X-Request-ID", "abc")
	tc.Context.String(http.StatusTeapot, "short and stout")

	assert.Equal(t, "abc", tc.Context.GetHeader("X-Request-ID"))
	assert.Equal(t, http.StatusTeapot, tc.ResponseCode())
	assert.Equal(t, "short and stout", string(tc.ResponseBody()))
}
