package shared

import "context"

// SearchMirror is the derived full-text index for one entity type.
// It is eventually consistent with the Repository and never authoritative.
type SearchMirror[T any] interface {
	// Index inserts or replaces the document keyed by the record's ID
	Index(ctx context.Context, entity *T) error
	// DeleteByID removes the document; absent documents are ignored
	DeleteByID(ctx context.Context, id int64) error
	// Search runs a query-string search ordered by relevance
	Search(ctx context.Context, query string, page PageRequest) (Page[T], error)
	// EnsureIndex creates the index when it does not exist
	EnsureIndex(ctx context.Context) error
	// DeleteIndex drops the index and all of its documents
	DeleteIndex(ctx context.Context) error
}
