package persistence

import (
	"github.com/store/backend/internal/domain/store"
	"gorm.io/gorm"
)

// ProductCategoryRepository persists product categories
type ProductCategoryRepository = GormEntityRepository[store.ProductCategory, *store.ProductCategory]

// ProductRepository persists products
type ProductRepository = GormEntityRepository[store.Product, *store.Product]

// ProductOrderRepository persists product orders
type ProductOrderRepository = GormEntityRepository[store.ProductOrder, *store.ProductOrder]

// OrderItemRepository persists order items
type OrderItemRepository = GormEntityRepository[store.OrderItem, *store.OrderItem]

// InvoiceRepository persists invoices
type InvoiceRepository = GormEntityRepository[store.Invoice, *store.Invoice]

// ShipmentRepository persists shipments
type ShipmentRepository = GormEntityRepository[store.Shipment, *store.Shipment]

func NewProductCategoryRepository(db *gorm.DB) *ProductCategoryRepository {
	return NewGormEntityRepository[store.ProductCategory](db, ProductCategorySortFields)
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return NewGormEntityRepository[store.Product](db, ProductSortFields, "ProductCategory")
}

func NewProductOrderRepository(db *gorm.DB) *ProductOrderRepository {
	return NewGormEntityRepository[store.ProductOrder](db, ProductOrderSortFields)
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return NewGormEntityRepository[store.OrderItem](db, OrderItemSortFields,
		"Product", "Product.ProductCategory", "Order")
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return NewGormEntityRepository[store.Invoice](db, InvoiceSortFields, "Order")
}

func NewShipmentRepository(db *gorm.DB) *ShipmentRepository {
	return NewGormEntityRepository[store.Shipment](db, ShipmentSortFields, "Invoice", "Invoice.Order")
}

// StoreModels lists the gorm models of every store table, referenced tables first
func StoreModels() []any {
	return []any{
		&store.ProductCategory{},
		&store.Product{},
		&store.ProductOrder{},
		&store.OrderItem{},
		&store.Invoice{},
		&store.Shipment{},
	}
}
