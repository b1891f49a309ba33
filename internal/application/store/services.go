package store

import (
	"context"
	"fmt"

	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/domain/store"
	"go.uber.org/zap"
)

// Indexer is the type-erased view of an EntityService used by maintenance
// endpoints and the search sync processor
type Indexer interface {
	Name() string
	EnsureIndex(ctx context.Context) error
	Reconcile(ctx context.Context, id int64) error
	Reindex(ctx context.Context) (int64, error)
}

// Services groups the service of every store entity
type Services struct {
	Categories *EntityService[store.ProductCategory, *store.ProductCategory]
	Products   *EntityService[store.Product, *store.Product]
	Orders     *EntityService[store.ProductOrder, *store.ProductOrder]
	OrderItems *EntityService[store.OrderItem, *store.OrderItem]
	Invoices   *EntityService[store.Invoice, *store.Invoice]
	Shipments  *EntityService[store.Shipment, *store.Shipment]
}

// Repositories holds the persistence gateway of every entity
type Repositories struct {
	Categories shared.Repository[store.ProductCategory]
	Products   shared.Repository[store.Product]
	Orders     shared.Repository[store.ProductOrder]
	OrderItems shared.Repository[store.OrderItem]
	Invoices   shared.Repository[store.Invoice]
	Shipments  shared.Repository[store.Shipment]
}

// Mirrors holds the search mirror of every entity
type Mirrors struct {
	Categories shared.SearchMirror[store.ProductCategory]
	Products   shared.SearchMirror[store.Product]
	Orders     shared.SearchMirror[store.ProductOrder]
	OrderItems shared.SearchMirror[store.OrderItem]
	Invoices   shared.SearchMirror[store.Invoice]
	Shipments  shared.SearchMirror[store.Shipment]
}

// NewServices creates a service per entity; opts apply to all of them.
// Writes to a record re-mirror the documents that embed it.
func NewServices(repos Repositories, mirrors Mirrors, logger *zap.Logger, opts ...Option) *Services {
	s := &Services{
		Categories: NewEntityService[store.ProductCategory](repos.Categories, mirrors.Categories, logger, opts...),
		Products:   NewEntityService[store.Product](repos.Products, mirrors.Products, logger, opts...),
		Orders:     NewEntityService[store.ProductOrder](repos.Orders, mirrors.Orders, logger, opts...),
		OrderItems: NewEntityService[store.OrderItem](repos.OrderItems, mirrors.OrderItems, logger, opts...),
		Invoices:   NewEntityService[store.Invoice](repos.Invoices, mirrors.Invoices, logger, opts...),
		Shipments:  NewEntityService[store.Shipment](repos.Shipments, mirrors.Shipments, logger, opts...),
	}
	s.Categories.embeddedIn(s.Products, store.ColumnProductCategoryID)
	s.Products.embeddedIn(s.OrderItems, store.ColumnProductID)
	s.Orders.embeddedIn(s.OrderItems, store.ColumnOrderID)
	s.Orders.embeddedIn(s.Invoices, store.ColumnOrderID)
	s.Invoices.embeddedIn(s.Shipments, store.ColumnInvoiceID)
	return s
}

// Indexers lists every service, referenced entities first
func (s *Services) Indexers() []Indexer {
	return []Indexer{s.Categories, s.Products, s.Orders, s.OrderItems, s.Invoices, s.Shipments}
}

// Indexer looks a service up by index name
func (s *Services) Indexer(name string) (Indexer, bool) {
	for _, ix := range s.Indexers() {
		if ix.Name() == name {
			return ix, true
		}
	}
	return nil, false
}

// EnsureIndexes creates every missing index
func (s *Services) EnsureIndexes(ctx context.Context) error {
	for _, ix := range s.Indexers() {
		if err := ix.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensure %s index: %w", ix.Name(), err)
		}
	}
	return nil
}

// ReindexResult is the outcome of rebuilding one index
type ReindexResult struct {
	Entity  string `json:"entity"`
	Indexed int64  `json:"indexed"`
}

// ReindexAll rebuilds every index in order and stops at the first failure
func (s *Services) ReindexAll(ctx context.Context) ([]ReindexResult, error) {
	results := make([]ReindexResult, 0, len(store.IndexNames()))
	for _, ix := range s.Indexers() {
		n, err := ix.Reindex(ctx)
		if err != nil {
			return results, fmt.Errorf("reindex %s: %w", ix.Name(), err)
		}
		results = append(results, ReindexResult{Entity: ix.Name(), Indexed: n})
	}
	return results, nil
}
