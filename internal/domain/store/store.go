// Package store holds the entities of the online store: the catalog
// (products and categories), orders with their items, invoices and shipments.
package store

import "github.com/store/backend/internal/domain/shared"

// Search index names, one per entity type
const (
	IndexProductCategory = "productcategory"
	IndexProduct         = "product"
	IndexProductOrder    = "productorder"
	IndexOrderItem       = "orderitem"
	IndexInvoice         = "invoice"
	IndexShipment        = "shipment"
)

// Foreign key columns
const (
	ColumnProductCategoryID = "product_category_id"
	ColumnProductID         = "product_id"
	ColumnOrderID           = "order_id"
	ColumnInvoiceID         = "invoice_id"
)

// IndexNames lists every index in dependency order (referenced before referencing)
func IndexNames() []string {
	return []string{
		IndexProductCategory,
		IndexProduct,
		IndexProductOrder,
		IndexOrderItem,
		IndexInvoice,
		IndexShipment,
	}
}

// refID returns the identity of a referenced record, or nil when there is none
func refID[T any, P shared.Record[T]](ref P) *int64 {
	if ref == nil || ref.IsNew() {
		return nil
	}
	id := ref.GetID()
	return &id
}
