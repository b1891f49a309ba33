package persistence

import (
	"strings"

	"github.com/store/backend/internal/domain/shared"
	"gorm.io/gorm/clause"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC.
// Anything other than a DESC spelling yields ASC.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), shared.SortDesc) {
		return shared.SortDesc
	}
	return shared.SortAsc
}

// ValidateSortField resolves a request field name to its column through the
// whitelist. The second result is false for unknown fields.
func ValidateSortField(sortField string, allowedFields map[string]string) (string, bool) {
	column, ok := allowedFields[strings.TrimSpace(sortField)]
	return column, ok
}

// OrderColumns converts requested sort keys into ORDER BY columns. Unknown
// fields are dropped and id is always appended as the final tie-breaker so
// paging is stable.
func OrderColumns(orders []shared.Order, allowedFields map[string]string) []clause.OrderByColumn {
	columns := make([]clause.OrderByColumn, 0, len(orders)+1)
	seen := make(map[string]bool, len(orders)+1)
	for _, o := range orders {
		column, ok := ValidateSortField(o.Field, allowedFields)
		if !ok || seen[column] {
			continue
		}
		seen[column] = true
		columns = append(columns, clause.OrderByColumn{
			Column: clause.Column{Name: column},
			Desc:   ValidateSortOrder(o.Direction) == shared.SortDesc,
		})
	}
	if !seen["id"] {
		columns = append(columns, clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	}
	return columns
}

// Allowed sort fields per entity, keyed by JSON field name

var ProductCategorySortFields = map[string]string{
	"id":          "id",
	"name":        "name",
	"description": "description",
}

var ProductSortFields = map[string]string{
	"id":          "id",
	"name":        "name",
	"description": "description",
	"price":       "price",
	"size":        "size",
}

var ProductOrderSortFields = map[string]string{
	"id":         "id",
	"placedDate": "placed_date",
	"status":     "status",
	"code":       "code",
}

var OrderItemSortFields = map[string]string{
	"id":       "id",
	"quantity": "quantity",
	"status":   "status",
}

var InvoiceSortFields = map[string]string{
	"id":            "id",
	"code":          "code",
	"date":          "date",
	"details":       "details",
	"status":        "status",
	"paymentMethod": "payment_method",
	"paymentDate":   "payment_date",
	"paymentAmount": "payment_amount",
}

var ShipmentSortFields = map[string]string{
	"id":           "id",
	"trackingCode": "tracking_code",
	"date":         "date",
	"details":      "details",
}
