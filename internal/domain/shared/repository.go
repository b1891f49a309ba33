package shared

import (
	"context"
	"strings"
)

// Repository is the persistence gateway for one entity type
type Repository[T any] interface {
	// Create inserts a record without identity and assigns a fresh one
	Create(ctx context.Context, entity *T) error
	// Update replaces an existing record; ErrNotFound if it is absent
	Update(ctx context.Context, entity *T) error
	FindByID(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context, page PageRequest) (Page[T], error)
	// DeleteByID removes the record; deleting an absent id is not an error
	DeleteByID(ctx context.Context, id int64) error
	ExistsByID(ctx context.Context, id int64) (bool, error)
	// FindAllIDs walks identities in ascending order starting after afterID
	FindAllIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// FindIDsReferencing returns the identities of records whose foreign key
	// column holds one of ids, ascending
	FindIDsReferencing(ctx context.Context, column string, ids []int64) ([]int64, error)
}

// Paging defaults
const (
	DefaultPageSize = 20
	MaxPageSize     = 2000
)

// Sort direction values
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// Order is one sort key
type Order struct {
	Field     string
	Direction string
}

// PageRequest is a zero-based page request
type PageRequest struct {
	Page int
	Size int
	Sort []Order
}

// DefaultPageRequest returns the first page with the default size
func DefaultPageRequest() PageRequest {
	return PageRequest{Page: 0, Size: DefaultPageSize}
}

// Normalize clamps page and size into the allowed range
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows to skip
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// ParseSort parses "field,dir" values such as "id,desc". A missing direction
// means ascending.
func ParseSort(values []string) []Order {
	orders := make([]Order, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ",")
		field := strings.TrimSpace(parts[0])
		if field == "" {
			continue
		}
		dir := SortAsc
		if len(parts) > 1 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
			dir = SortDesc
		}
		orders = append(orders, Order{Field: field, Direction: dir})
	}
	return orders
}

// Page is one page of results plus the overall total
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Size  int
}

// NewPage creates a page result
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: req.Page, Size: req.Size}
}

// TotalPages returns the number of pages for the current size
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	pages := int(p.Total) / p.Size
	if int(p.Total)%p.Size > 0 {
		pages++
	}
	return pages
}
