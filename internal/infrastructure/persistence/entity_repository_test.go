package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func qty(n int) *int {
	return &n
}

func newProduct(name, p string, category *store.ProductCategory) *store.Product {
	return &store.Product{
		Name:            name,
		Price:           price(p),
		Size:            store.SizeM,
		ProductCategory: category,
	}
}

func TestEntityRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewProductCategoryRepository(newTestDB(t))

	t.Run("assigns a fresh identity", func(t *testing.T) {
		first := &store.ProductCategory{Name: "Shirts"}
		second := &store.ProductCategory{Name: "Hats"}

		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		assert.NotZero(t, first.ID)
		assert.NotZero(t, second.ID)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("rejects a record that already has an identity", func(t *testing.T) {
		err := repo.Create(ctx, &store.ProductCategory{BaseEntity: shared.BaseEntity{ID: 99}, Name: "x"})
		assert.ErrorIs(t, err, shared.ErrIdentityAssigned)

		exists, err := repo.ExistsByID(ctx, 99)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestEntityRepository_FindByID_LoadsReferences(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	categories := NewProductCategoryRepository(db)
	products := NewProductRepository(db)
	orders := NewProductOrderRepository(db)
	items := NewOrderItemRepository(db)

	category := &store.ProductCategory{Name: "Shirts"}
	require.NoError(t, categories.Create(ctx, category))

	// only the identity of the nested category is used
	product := newProduct("Tee", "19.99", &store.ProductCategory{BaseEntity: shared.BaseEntity{ID: category.ID}, Name: "ignored"})
	require.NoError(t, products.Create(ctx, product))

	order := &store.ProductOrder{PlacedDate: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Status: store.OrderStatusPending, Code: "ORD-1"}
	require.NoError(t, orders.Create(ctx, order))

	item := &store.OrderItem{Quantity: qty(2), Status: store.OrderItemStatusAvailable, Product: product, Order: order}
	require.NoError(t, items.Create(ctx, item))

	loaded, err := items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, *loaded.Quantity)
	require.NotNil(t, loaded.Product)
	assert.Equal(t, product.ID, loaded.Product.ID)
	assert.True(t, loaded.Product.Price.Equal(decimal.RequireFromString("19.99")))
	require.NotNil(t, loaded.Product.ProductCategory)
	assert.Equal(t, "Shirts", loaded.Product.ProductCategory.Name)
	require.NotNil(t, loaded.Order)
	assert.Equal(t, "ORD-1", loaded.Order.Code)

	renamed, err := categories.FindByID(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shirts", renamed.Name, "nested reference must not be written")

	_, err = items.FindByID(ctx, 12345)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEntityRepository_Update(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	categories := NewProductCategoryRepository(db)
	products := NewProductRepository(db)

	category := &store.ProductCategory{Name: "Shirts"}
	require.NoError(t, categories.Create(ctx, category))
	product := newProduct("Tee", "10.00", category)
	product.Description = "cotton"
	require.NoError(t, products.Create(ctx, product))

	t.Run("replaces every column", func(t *testing.T) {
		replacement := &store.Product{
			BaseEntity: shared.BaseEntity{ID: product.ID},
			Name:       "Polo",
			Price:      price("25.50"),
			Size:       store.SizeXL,
		}
		require.NoError(t, products.Update(ctx, replacement))

		loaded, err := products.FindByID(ctx, product.ID)
		require.NoError(t, err)
		assert.Equal(t, "Polo", loaded.Name)
		assert.Empty(t, loaded.Description)
		assert.Equal(t, store.SizeXL, loaded.Size)
		assert.Nil(t, loaded.ProductCategory, "dropped reference is cleared")
	})

	t.Run("unknown identity", func(t *testing.T) {
		err := products.Update(ctx, &store.Product{BaseEntity: shared.BaseEntity{ID: 777}, Name: "x", Price: price("1"), Size: store.SizeS})
		assert.ErrorIs(t, err, shared.ErrNotFound)

		exists, err := products.ExistsByID(ctx, 777)
		require.NoError(t, err)
		assert.False(t, exists, "update must not insert")
	})

	t.Run("missing identity", func(t *testing.T) {
		err := products.Update(ctx, newProduct("x", "1", nil))
		assert.ErrorIs(t, err, shared.ErrIdentityMissing)
	})
}

func TestEntityRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	products := NewProductRepository(newTestDB(t))

	for i, p := range []string{"5.00", "30.00", "12.00", "7.50", "30.00"} {
		require.NoError(t, products.Create(ctx, newProduct(string(rune('A'+i)), p, nil)))
	}

	t.Run("pages by identity", func(t *testing.T) {
		page, err := products.FindAll(ctx, shared.PageRequest{Page: 1, Size: 2})
		require.NoError(t, err)

		assert.Equal(t, int64(5), page.Total)
		assert.Equal(t, 3, page.TotalPages())
		require.Len(t, page.Items, 2)
		assert.Equal(t, "C", page.Items[0].Name)
		assert.Equal(t, "D", page.Items[1].Name)
	})

	t.Run("sorts by whitelisted field with id tie-breaker", func(t *testing.T) {
		page, err := products.FindAll(ctx, shared.PageRequest{
			Size: 10,
			Sort: []shared.Order{{Field: "price", Direction: shared.SortDesc}},
		})
		require.NoError(t, err)

		names := make([]string, len(page.Items))
		for i, p := range page.Items {
			names[i] = p.Name
		}
		assert.Equal(t, []string{"B", "E", "C", "D", "A"}, names)
	})

	t.Run("ignores unknown sort fields", func(t *testing.T) {
		page, err := products.FindAll(ctx, shared.PageRequest{
			Size: 10,
			Sort: []shared.Order{{Field: "name; DROP TABLE product", Direction: shared.SortDesc}},
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
		assert.Equal(t, "A", page.Items[0].Name)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		page, err := products.FindAll(ctx, shared.PageRequest{Page: 9, Size: 2})
		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
		assert.Equal(t, int64(5), page.Total)
	})
}

func TestEntityRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	invoices := NewInvoiceRepository(db)
	shipments := NewShipmentRepository(db)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	invoice := &store.Invoice{
		Code: "INV-1", Date: now, Status: store.InvoiceStatusIssued,
		PaymentMethod: store.PaymentMethodPaypal, PaymentDate: now, PaymentAmount: price("99.90"),
	}
	require.NoError(t, invoices.Create(ctx, invoice))
	shipment := &store.Shipment{Date: now, TrackingCode: "TRK", Invoice: invoice}
	require.NoError(t, shipments.Create(ctx, shipment))

	require.NoError(t, shipments.DeleteByID(ctx, shipment.ID))

	exists, err := shipments.ExistsByID(ctx, shipment.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = invoices.ExistsByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, exists, "referenced invoice survives")

	assert.NoError(t, shipments.DeleteByID(ctx, shipment.ID), "deleting twice is not an error")
}

func TestEntityRepository_FindAllIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewProductOrderRepository(newTestDB(t))

	var ids []int64
	for i := 0; i < 5; i++ {
		o := &store.ProductOrder{PlacedDate: time.Now().UTC(), Status: store.OrderStatusCompleted, Code: "c"}
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
	}

	first, err := repo.FindAllIDs(ctx, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, ids[:3], first)

	rest, err := repo.FindAllIDs(ctx, first[len(first)-1], 3)
	require.NoError(t, err)
	assert.Equal(t, ids[3:], rest)

	none, err := repo.FindAllIDs(ctx, ids[4], 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTranslateWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"foreign key", gorm.ErrForeignKeyViolated, shared.ErrUnknownReference},
		{"duplicate key", gorm.ErrDuplicatedKey, shared.ErrAlreadyExists},
		{"other", errors.New("connection reset"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateWriteError(tt.err)
			if tt.want == nil {
				assert.Same(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestEntityRepository_References(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	products := NewProductRepository(db)
	items := NewOrderItemRepository(db)

	tee := newProduct("Tee", "9.00", nil)
	polo := newProduct("Polo", "19.00", nil)
	require.NoError(t, products.Create(ctx, tee))
	require.NoError(t, products.Create(ctx, polo))

	var itemIDs []int64
	for _, p := range []*store.Product{tee, polo, tee} {
		item := &store.OrderItem{Quantity: qty(1), Status: store.OrderItemStatusAvailable, Product: p}
		require.NoError(t, items.Create(ctx, item))
		itemIDs = append(itemIDs, item.ID)
	}

	t.Run("unknown reference is rejected", func(t *testing.T) {
		err := items.Create(ctx, &store.OrderItem{
			Quantity: qty(1),
			Status:   store.OrderItemStatusAvailable,
			Product:  &store.Product{BaseEntity: shared.BaseEntity{ID: 777}},
		})
		assert.ErrorIs(t, err, shared.ErrUnknownReference)
	})

	t.Run("finds referencing records", func(t *testing.T) {
		ids, err := items.FindIDsReferencing(ctx, store.ColumnProductID, []int64{tee.ID})
		require.NoError(t, err)
		assert.Equal(t, []int64{itemIDs[0], itemIDs[2]}, ids)

		ids, err = items.FindIDsReferencing(ctx, store.ColumnProductID, []int64{tee.ID, polo.ID})
		require.NoError(t, err)
		assert.Equal(t, itemIDs, ids)

		ids, err = items.FindIDsReferencing(ctx, store.ColumnProductID, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("deleting the referenced record clears the reference", func(t *testing.T) {
		require.NoError(t, products.DeleteByID(ctx, tee.ID))

		loaded, err := items.FindByID(ctx, itemIDs[0])
		require.NoError(t, err)
		assert.Nil(t, loaded.Product)
		assert.Nil(t, loaded.ProductID)

		ids, err := items.FindIDsReferencing(ctx, store.ColumnProductID, []int64{tee.ID})
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
